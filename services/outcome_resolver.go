package services

import (
	"fmt"
	"strings"
)

// OutcomeResolver 负责把内部胜负结果映射到平台侧 outcome ID
// 优先按结果文案语义匹配, 文案不可识别时回退到 [胜, 负] 的位置约定
type OutcomeResolver struct {
	winWords  []string
	lossWords []string
}

// NewOutcomeResolver 创建结果映射器
func NewOutcomeResolver() *OutcomeResolver {
	return &OutcomeResolver{
		winWords:  []string{"yes", "win", "victory", "gg"},
		lossWords: []string{"no", "loss", "lose", "defeat", "ff"},
	}
}

// ResolveWinningOutcome 选出获胜 outcome 的平台 ID
// playerWon 表示被跟踪玩家所在一方是否获胜
func (r *OutcomeResolver) ResolveWinningOutcome(outcomes []PredictionOutcome, playerWon bool) (string, error) {
	if len(outcomes) < 2 {
		return "", fmt.Errorf("prediction has %d outcomes, need at least 2", len(outcomes))
	}

	// 1. 语义匹配: 按文案找到"胜"和"负"两个选项
	winID, lossID := "", ""
	for _, o := range outcomes {
		title := normalizeTitle(o.Title)
		if winID == "" && containsAny(title, r.winWords) {
			winID = o.ID
			continue
		}
		if lossID == "" && containsAny(title, r.lossWords) {
			lossID = o.ID
		}
	}

	if winID != "" && lossID != "" {
		if playerWon {
			return winID, nil
		}
		return lossID, nil
	}

	// 2. 位置回退: 约定 outcomes[0]=胜, outcomes[1]=负
	if playerWon {
		return outcomes[0].ID, nil
	}
	return outcomes[1].ID, nil
}

// normalizeTitle 归一化文案
func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// containsAny 文案是否包含任一关键词
func containsAny(title string, words []string) bool {
	for _, w := range words {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}
