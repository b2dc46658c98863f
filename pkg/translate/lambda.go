package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"polyglot-chat/internal/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// lambdaInvoker 是 *lambda.Client 中本包用到的部分，便于测试替换。
type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// managerRequest 与翻译管理函数的输入格式一致。
type managerRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"sourceLang"`
	TargetLang string   `json:"targetLang"`
}

// managerResponse 与翻译管理函数的输出格式一致。
type managerResponse struct {
	Translations []string `json:"translations,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// lambdaClient 通过 AWS Lambda 翻译文本，语言检测委托给 detector。
type lambdaClient struct {
	invoker      lambdaInvoker
	functionName string
	detector     Detector
}

// NewLambdaClient 使用默认凭证链创建 Lambda 翻译客户端。
func NewLambdaClient(ctx context.Context, cfg config.LambdaConfig, detector Detector) (Client, error) {
	if cfg.FunctionName == "" {
		return nil, errors.New("translation.lambda.function_name is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &lambdaClient{
		invoker:      lambda.NewFromConfig(awsCfg),
		functionName: cfg.FunctionName,
		detector:     detector,
	}, nil
}

func (c *lambdaClient) Detect(ctx context.Context, text string) (string, error) {
	return c.detector.Detect(ctx, text)
}

func (c *lambdaClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	payload, err := json.Marshal(managerRequest{
		Texts:      []string{text},
		SourceLang: source,
		TargetLang: target,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	functionName := c.functionName
	result, err := c.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &functionName,
		Payload:      payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke %s: %w", functionName, err)
	}
	if result.FunctionError != nil {
		return "", fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp managerResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPair, resp.Error)
	}
	if len(resp.Translations) != 1 {
		return "", fmt.Errorf("translator returned %d translations, want 1", len(resp.Translations))
	}
	return resp.Translations[0], nil
}
