// Package gzippedhttp decompresses gzip request bodies and compresses
// HTML and JSON responses for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var compressibleContentTypes = []string{
	"text/html",
	"application/json",
}

type gzipBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzipBody(body io.ReadCloser) (*gzipBody, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &gzipBody{
		body: body,
		zr:   zr,
	}, nil
}

func (b *gzipBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

func (b *gzipBody) Close() error {
	if err := b.zr.Close(); err != nil {
		return err
	}
	return b.body.Close()
}

// gzipResponseWriter decides on the first WriteHeader or Write whether the
// response is worth compressing, based on its Content-Type.
type gzipResponseWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	decided     bool
	compressing bool
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

func (w *gzipResponseWriter) decide(statusCode int) {
	if w.decided {
		return
	}
	w.decided = true

	header := w.Header()
	if statusCode < 200 || statusCode == http.StatusNoContent || statusCode == http.StatusNotModified ||
		header.Get("Content-Encoding") != "" || !isCompressible(header.Get("Content-Type")) {
		return
	}

	w.compressing = true
	header.Set("Content-Encoding", "gzip")
	header.Add("Vary", "Accept-Encoding")
	header.Del("Content-Length")

	w.zw = gzipWriterPool.Get().(*gzip.Writer)
	w.zw.Reset(w.ResponseWriter)
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.decide(statusCode)
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.decided {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(p))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.compressing {
		return w.zw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) close() error {
	if !w.compressing {
		return nil
	}
	err := w.zw.Close()
	gzipWriterPool.Put(w.zw)
	return err
}

func isCompressible(contentType string) bool {
	for _, compressible := range compressibleContentTypes {
		if strings.HasPrefix(contentType, compressible) {
			return true
		}
	}
	return false
}

// GzipResponse compresses HTML and JSON responses when the request's
// Accept-Encoding allows gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		writer := &gzipResponseWriter{ResponseWriter: response}
		defer func() {
			_ = writer.close()
		}()

		h.ServeHTTP(writer, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with its decompressed stream.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		body, err := newGzipBody(request.Body)
		if err != nil {
			http.Error(response, "malformed gzip body", http.StatusBadRequest)
			return
		}
		defer body.Close()

		request.Body = body
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
