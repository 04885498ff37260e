package postprocessors

import (
	"regexp"
	"strings"
)

// NoiseTier is the weight of a noise pattern.
type NoiseTier int

const (
	// TierStrong patterns mark a chunk as noise on their own.
	TierStrong NoiseTier = iota
	// TierWeak patterns mark a chunk as noise when WeakThreshold distinct ones match.
	TierWeak
)

// WeakThreshold is the number of distinct weak matches that classify a chunk as noise.
const WeakThreshold = 2

// NoisePattern is one entry of the noise rule table.
type NoisePattern struct {
	Name string
	Tier NoiseTier
	Re   *regexp.Regexp
}

func strong(name, expr string) NoisePattern {
	return NoisePattern{Name: name, Tier: TierStrong, Re: regexp.MustCompile(expr)}
}

func weak(name, expr string) NoisePattern {
	return NoisePattern{Name: name, Tier: TierWeak, Re: regexp.MustCompile(expr)}
}

// DefaultNoisePatterns detect address and contact boilerplate in annual
// reports. Patterns are matched against lower-cased text.
var DefaultNoisePatterns = []NoisePattern{
	strong("registered_office", `registered office`),
	strong("corporate_office", `corporate office`),
	strong("head_office", `head office`),
	strong("regd_office", `regd\.?\s*office`),
	strong("correspondence_address", `correspondence address`),
	strong("auditor_floor", `chartered accountants.*floor`),
	strong("llp_floor_wing", `llp.*floor.*wing`),
	strong("numbered_floor_wing", `\d+th\s+floor.*wing`),
	strong("telephone_number", `telephone\s*:\s*\+?\d`),
	strong("fax_number", `fax\s*:\s*\+?\d`),
	strong("city_pin_code", `(mumbai|bangalore|delhi|hyderabad|chennai|pune)\s*[—-]\s*\d{6}`),
	strong("india_telephone", `india\s+telephone`),
	strong("nesco_park", `nesco.*park`),
	strong("western_express_highway", `western express highway`),
	strong("mumbai_locality", `goregaon|andheri|bandra|worli`),

	weak("phone", `\b(phone|tel|telephone|fax)`),
	weak("email", `\b(email|e-mail)`),
	weak("website", `\b(website|www\.)`),
	weak("six_digits", `\d{6}`),
	weak("street_words", `\b(road|street|avenue|floor|building|tower|complex|premises|wing)`),
	weak("city", `\b(mumbai|bangalore|delhi|hyderabad|chennai|pune|kolkata)`),
	weak("india_dial_code", `\+91`),
	weak("chartered_accountants", `chartered accountants`),
	weak("llp", `\bllp\b`),
}

// NoiseVerdict is the outcome of ClassifyNoise.
type NoiseVerdict struct {
	Noise  bool
	Strong []string // names of matched strong patterns
	Weak   []string // names of matched weak patterns
}

// ClassifyNoise evaluates the pattern table against text. Any strong match,
// or WeakThreshold or more distinct weak matches, makes the chunk noise.
func ClassifyNoise(text string, patterns []NoisePattern) NoiseVerdict {
	lower := strings.ToLower(text)
	var v NoiseVerdict
	for _, p := range patterns {
		if !p.Re.MatchString(lower) {
			continue
		}
		switch p.Tier {
		case TierStrong:
			v.Strong = append(v.Strong, p.Name)
		case TierWeak:
			v.Weak = append(v.Weak, p.Name)
		}
	}
	v.Noise = len(v.Strong) > 0 || len(v.Weak) >= WeakThreshold
	return v
}

// IsNoise reports whether text matches the default noise rules.
func IsNoise(text string) bool {
	return ClassifyNoise(text, DefaultNoisePatterns).Noise
}
