package gaceta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchPDFURL_RelativeHref(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gaceta/", r.URL.Path)
		fmt.Fprint(w, `<html><body>
			<a id="ctl00_PdfGacetaDescargarHyperLink" href="/pub/gaceta/2025/06/gaceta-102.pdf">Descargar</a>
		</body></html>`)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL)
	url, err := scraper.FetchPDFURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, server.URL+"/pub/gaceta/2025/06/gaceta-102.pdf", url)
}

func TestFetchPDFURL_AbsoluteHref(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a id="ctl00_PdfGacetaDescargarHyperLink" href="https://cdn.example.com/gaceta.pdf">Descargar</a>
		</body></html>`)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL)
	url, err := scraper.FetchPDFURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/gaceta.pdf", url)
}

func TestFetchPDFURL_LinkMissing(t *testing.T) {
	// 节假日无刊，下载页没有 PDF 链接
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>No hay gaceta hoy</p></body></html>`)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL)
	_, err := scraper.FetchPDFURL(context.Background())
	require.True(t, errors.Is(err, ErrPDFLinkNotFound))
}

func TestDownloadPDF(t *testing.T) {
	content := []byte("%PDF-1.7 fake content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL)
	data, err := scraper.DownloadPDF(context.Background(), server.URL+"/gaceta.pdf")
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestDownloadPDF_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL)
	_, err := scraper.DownloadPDF(context.Background(), server.URL+"/gaceta.pdf")
	require.Error(t, err)
}
