package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"polyglot-chat/internal/model"
	"polyglot-chat/pkg/log"

	"github.com/go-pdf/fpdf"
)

// TurnReader 是导出所需的只读视图。
type TurnReader interface {
	ListAll(ctx context.Context) ([]model.ChatTurn, error)
}

// ExportOptions 控制 PDF 的渲染方式。
type ExportOptions struct {
	Title    string
	FontPath string // 可选的 UTF-8 TTF 字体，用于非拉丁文字
	Compress bool
}

// ExportService 将完整对话渲染为文档。
type ExportService interface {
	RenderPDF(ctx context.Context, w io.Writer) error
	FileName(now time.Time) string
}

type exportService struct {
	reader TurnReader
	opts   ExportOptions
}

// NewExportService 创建一个新的 ExportService。
func NewExportService(reader TurnReader, opts ExportOptions) ExportService {
	return &exportService{reader: reader, opts: opts}
}

// FileName 返回带时间戳的下载文件名。
func (s *exportService) FileName(now time.Time) string {
	return fmt.Sprintf("chat_%s.pdf", now.Format("20060102_150405"))
}

// RenderPDF 按 ListAll 返回的顺序渲染每条记录：加粗的标题行加自动换行的正文。
func (s *exportService) RenderPDF(ctx context.Context, w io.Writer) error {
	turns, err := s.reader.ListAll(ctx)
	if err != nil {
		return &StorageError{Op: "list", Err: err}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(s.opts.Compress)
	pdf.SetAutoPageBreak(true, 15)

	family := "Helvetica"
	encode := pdf.UnicodeTranslatorFromDescriptor("")
	if s.opts.FontPath != "" {
		family = "unicode"
		pdf.AddUTF8Font(family, "", s.opts.FontPath)
		pdf.AddUTF8Font(family, "B", s.opts.FontPath)
		encode = func(text string) string { return text }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, encode(s.opts.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	for _, t := range turns {
		header := fmt.Sprintf("%s (%s) %s", strings.ToUpper(string(t.Role)), t.Language, model.LocalTime(t.CreatedAt).String())
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(0, 8, encode(header), "", 1, "L", false, 0, "")
		pdf.SetFont(family, "", 11)
		pdf.MultiCell(0, 8, encode(t.Message), "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		log.Errorf("[Export] 渲染 PDF 失败: %v", err)
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	log.Infof("[Export] 已导出 %d 条对话记录", len(turns))
	return nil
}
