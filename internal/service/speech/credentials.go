package speech

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/sirius-report/backend/internal/config"
)

// resolveCredentials 返回规范化后的 AppID 与 AccessToken，缺失时给出明确错误。
func resolveCredentials(cfg config.SpeechConfig) (string, string, error) {
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}

	if appID == "" || token == "" {
		return "", "", fmt.Errorf("火山引擎语音配置缺少 AppID 或 AccessToken")
	}
	return appID, token, nil
}

// resourceID 小时版或并发版计费资源
func resourceID(cfg config.SpeechConfig) string {
	if cfg.ConcurrentMode {
		return "volc.bigasr.sauc.concurrent"
	}
	return "volc.bigasr.sauc.duration"
}
