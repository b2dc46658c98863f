package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"polyglot-chat/internal/model"
	"polyglot-chat/internal/repository"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/storage"

	"github.com/google/uuid"
)

// UploadService 定义了文件上传相关的业务操作。
type UploadService interface {
	// Upload 保存文件并写入两条标记上传事件的对话记录，返回提示文本。
	Upload(ctx context.Context, fileName string, file io.Reader, size int64, contentType string) (string, error)
}

type uploadService struct {
	store         storage.FileStore
	turnRepo      repository.TurnRepository
	publisher     TurnPublisher
	pivotLanguage string
	maxFileSize   int64
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(store storage.FileStore, turnRepo repository.TurnRepository, publisher TurnPublisher, pivotLanguage string, maxFileSize int64) UploadService {
	return &uploadService{
		store:         store,
		turnRepo:      turnRepo,
		publisher:     publisher,
		pivotLanguage: pivotLanguage,
		maxFileSize:   maxFileSize,
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFileName 去掉路径与不安全字符，结果为空时返回空字符串。
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

func (s *uploadService) Upload(ctx context.Context, fileName string, file io.Reader, size int64, contentType string) (string, error) {
	safeName := SanitizeFileName(fileName)
	if safeName == "" {
		return "", &ValidationError{Message: "Invalid file"}
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return "", &ValidationError{Message: fmt.Sprintf("File exceeds the %d byte limit", s.maxFileSize)}
	}

	objectName := uuid.NewString() + "_" + safeName
	location, err := s.store.Save(ctx, objectName, file, size, contentType)
	if err != nil {
		log.Errorf("[Upload] 保存文件失败, file: %s, error: %v", safeName, err)
		return "", &StorageError{Op: "upload", Err: err}
	}
	log.Infof("[Upload] 文件已保存, file: %s, location: %s", safeName, location)

	userTurn := &model.ChatTurn{Role: model.RoleUser, Language: model.LanguageFile, Message: "Uploaded file: " + safeName}
	if err := recordTurn(ctx, s.turnRepo, s.publisher, userTurn); err != nil {
		return "", err
	}
	reply := fmt.Sprintf("File '%s' uploaded successfully", safeName)
	assistantTurn := &model.ChatTurn{Role: model.RoleAssistant, Language: s.pivotLanguage, Message: reply}
	if err := recordTurn(ctx, s.turnRepo, s.publisher, assistantTurn); err != nil {
		return "", err
	}
	return reply, nil
}
