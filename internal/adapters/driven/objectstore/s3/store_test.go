package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// fakeBucket serves a minimal path-style S3 API for bucket "docs".
func fakeBucket(t *testing.T, objects map[string]string, order []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/docs")
		if path == "" || path == "/" {
			prefix := r.URL.Query().Get("prefix")
			var b strings.Builder
			b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
			b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>docs</Name>`)
			b.WriteString(`<IsTruncated>false</IsTruncated>`)
			for _, k := range order {
				if strings.HasPrefix(k, prefix) {
					fmt.Fprintf(&b, `<Contents><Key>%s</Key><Size>%d</Size></Contents>`, k, len(objects[k]))
				}
			}
			b.WriteString(`</ListBucketResult>`)
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(b.String()))
			return
		}

		body, ok := objects[strings.TrimPrefix(path, "/")]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	}))
}

func newTestStore(t *testing.T, srv *httptest.Server) *Store {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	return NewWithClient(client, "docs")
}

func TestStore_List(t *testing.T) {
	objects := map[string]string{
		"reports/":      "",
		"reports/a.pdf": "a",
		"reports/b.txt": "b",
		"archive/c.pdf": "c",
	}
	srv := fakeBucket(t, objects, []string{"archive/c.pdf", "reports/", "reports/a.pdf", "reports/b.txt"})
	defer srv.Close()
	s := newTestStore(t, srv)

	keys, err := s.List(context.Background(), "reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/a.pdf", "reports/b.txt"}, keys)

	all, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Get(t *testing.T) {
	srv := fakeBucket(t, map[string]string{"reports/a.pdf": "%PDF-1.4"}, []string{"reports/a.pdf"})
	defer srv.Close()
	s := newTestStore(t, srv)

	rc, err := s.Get(context.Background(), "reports/a.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestStore_Get_NotFound(t *testing.T) {
	srv := fakeBucket(t, map[string]string{}, nil)
	defer srv.Close()
	s := newTestStore(t, srv)

	_, err := s.Get(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
