package gaceta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gacetachat/pkg/httputil"

	"github.com/PuerkitoBio/goquery"
)

// 下载页上当日公报 PDF 链接的选择器
const pdfLinkSelector = "#ctl00_PdfGacetaDescargarHyperLink"

// ErrPDFLinkNotFound 下载页上找不到当日 PDF 链接（节假日无刊）
var ErrPDFLinkNotFound = fmt.Errorf("下载页未找到公报 PDF 链接")

// Scraper 从国家印刷局官网抓取当日公报 PDF
type Scraper struct {
	baseURL string
	client  *httputil.Client
}

// NewScraper 创建 Scraper 实例
// 官网偶发 5xx，带一次重试
func NewScraper(baseURL string) *Scraper {
	return &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: httputil.NewClient(
			httputil.WithTimeout(60*time.Second),
			httputil.WithRetries(1),
		),
	}
}

// FetchPDFURL 解析下载页，返回当日公报 PDF 的完整地址
func (s *Scraper) FetchPDFURL(ctx context.Context) (string, error) {
	pageURL := s.baseURL + "/gaceta/"

	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("请求下载页失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("下载页返回异常状态: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("解析下载页失败: %w", err)
	}

	href, ok := doc.Find(pdfLinkSelector).Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", ErrPDFLinkNotFound
	}

	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, nil
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.baseURL + href, nil
}

// DownloadPDF 下载 PDF 内容
func (s *Scraper) DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	resp, err := s.client.Get(ctx, pdfURL)
	if err != nil {
		return nil, fmt.Errorf("下载 PDF 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF 下载返回异常状态: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 内容失败: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("PDF 内容为空")
	}

	return data, nil
}
