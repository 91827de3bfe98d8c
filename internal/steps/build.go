package steps

import (
	"github.com/imamik/kinstall/internal/config"
	"github.com/imamik/kinstall/internal/orchestration"
)

// Build registers one step per configured step, in file order.
func Build(cfg *config.Config, kit *Kit) (*orchestration.Registry, error) {
	reg := orchestration.NewRegistry()
	for _, s := range cfg.Steps {
		if err := reg.Register(s.Name, s.IsCritical(), NewAction(s, cfg.Timeouts, kit)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
