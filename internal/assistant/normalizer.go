package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
)

// CategoryNormalizer maps an arbitrary category phrase onto the fixed
// category set. It is the single normalization path for both expense
// creation and query filtering, so the store only ever groups by the
// fixed set.
type CategoryNormalizer struct {
	gateway llm.Gateway
	logger  *slog.Logger
}

// NewCategoryNormalizer creates a category normalizer.
func NewCategoryNormalizer(gateway llm.Gateway, logger *slog.Logger) *CategoryNormalizer {
	return &CategoryNormalizer{gateway: gateway, logger: logger}
}

// Normalize returns the closest member of the fixed category set for the
// given phrase. The model's answer is accepted only when it is an exact
// (case-sensitive) member; every failure path lands on Other.
func (n *CategoryNormalizer) Normalize(ctx context.Context, phrase string) model.Category {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return model.CategoryOther
	}
	if c, ok := model.ParseCategory(phrase); ok {
		return c
	}

	prompt := fmt.Sprintf(`Map the expense category phrase %q to the single closest category from this list:
%s

Reply as JSON: {"category": "<exact category from the list>"}`,
		phrase, strings.Join(model.CategoryNames(), "\n"))

	reply, err := n.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, true)
	if err != nil {
		n.logger.Warn("category normalization failed, defaulting to Other", "phrase", phrase, "error", err)
		return model.CategoryOther
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := llm.ExtractJSON(reply, &out); err != nil {
		n.logger.Warn("category reply unparseable, defaulting to Other", "phrase", phrase, "error", err)
		return model.CategoryOther
	}

	category, ok := model.ParseCategory(strings.TrimSpace(out.Category))
	if !ok {
		return model.CategoryOther
	}
	return category
}
