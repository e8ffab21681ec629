package client

import (
	"context"
	"sort"
	"strings"

	"engine-bridge/core/response"

	"go.uber.org/zap"
)

// ApplyPreferences pushes resolved preferences to the engine. It first tries
// one batch update; if the engine rejects the batch, each preference is
// applied individually so one bad key cannot block the rest. Keys that still
// fail are reported together.
func (c *Client) ApplyPreferences(ctx context.Context, prefs map[string]any) error {
	if len(prefs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		batch = append(batch, map[string]any{
			"preferenceName":  k,
			"preferenceValue": prefs[k],
		})
	}
	if res := c.Put(ctx, "preferences", batch); res.Err == nil {
		return nil
	}

	var failed []string
	for _, k := range keys {
		one := []map[string]any{{
			"preferenceName":  k,
			"preferenceValue": prefs[k],
		}}
		if res := c.Put(ctx, "preferences", one); res.Err != nil {
			c.log.Warn("preference rejected by engine",
				zap.String("preference", k), zap.String("reason", res.Err.Message))
			failed = append(failed, k)
		}
	}
	if len(failed) > 0 {
		return response.NewError(response.KindApplication,
			"engine rejected preferences: %s", strings.Join(failed, ", "))
	}
	return nil
}
