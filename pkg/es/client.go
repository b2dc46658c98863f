// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"polyglot-chat/internal/config"
	"polyglot-chat/internal/model"
	"polyglot-chat/pkg/log"
	"polyglot-chat/pkg/tasks"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const turnMapping = `{
	"mappings": {
		"properties": {
			"turn_id": { "type": "long" },
			"role": { "type": "keyword" },
			"language": { "type": "keyword" },
			"message": { "type": "text" },
			"created_at": { "type": "date" }
		}
	}
}`

// TurnIndex 封装了对话记录全文检索索引。
type TurnIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewTurnIndex 初始化 Elasticsearch 客户端，并在索引不存在时创建它。
func NewTurnIndex(esCfg config.ElasticsearchConfig) (*TurnIndex, error) {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, err
	}
	idx := &TurnIndex{client: client, indexName: esCfg.IndexName}
	if err := idx.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (i *TurnIndex) createIndexIfNotExists() error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", i.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(turnMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", i.indexName, err)
		return err
	}
	defer res.Body.Close()
	// 并发启动时另一个实例可能已创建索引
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", i.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", i.indexName)
	return nil
}

type turnDocument struct {
	TurnID    uint      `json:"turn_id"`
	Role      string    `json:"role"`
	Language  string    `json:"language"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexTurn 将单条对话记录写入索引，重复写入同一 TurnID 会覆盖旧文档。
func (i *TurnIndex) IndexTurn(ctx context.Context, task tasks.TurnIndexTask) error {
	docBytes, err := json.Marshal(turnDocument{
		TurnID:    task.TurnID,
		Role:      task.Role,
		Language:  task.Language,
		Message:   task.Message,
		CreatedAt: task.CreatedAt,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: fmt.Sprintf("%d", task.TurnID),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("索引对话记录到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index turn")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64      `json:"_score"`
			Source turnDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchTurns 对消息正文做全文检索，按相关度返回最多 size 条结果。
func (i *TurnIndex) SearchTurns(ctx context.Context, query string, size int) ([]model.TurnSearchHit, error) {
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"message": query,
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("Elasticsearch 检索出错: %s", res.String())
		return nil, errors.New("failed to search turns")
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析检索结果失败: %w", err)
	}
	hits := make([]model.TurnSearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, model.TurnSearchHit{
			TurnDTO: model.TurnDTO{
				Role:      model.Role(h.Source.Role),
				Language:  h.Source.Language,
				Message:   h.Source.Message,
				Timestamp: model.LocalTime(h.Source.CreatedAt),
			},
			Score: h.Score,
		})
	}
	return hits, nil
}

// ClearTurns 删除索引中的全部文档。
func (i *TurnIndex) ClearTurns(ctx context.Context) error {
	res, err := i.client.DeleteByQuery(
		[]string{i.indexName},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		i.client.DeleteByQuery.WithContext(ctx),
		i.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("清空检索索引出错: %s", res.String())
		return errors.New("failed to clear turn index")
	}
	return nil
}
