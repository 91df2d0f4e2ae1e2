package annot

import "github.com/goliatone/go-annotations/pkg/activity"

// ActivityHooks returns a copy of the hooks the engine notifies.
func (e *Engine) ActivityHooks() activity.Hooks {
	if e == nil {
		return nil
	}
	return e.cfg.activityHooks.Compact()
}
