package commands

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/autodoc/internal/config"
)

// ShowCmd prints the effective configuration after defaults and environment
// expansion, which is what the pipeline actually runs with.
type ShowCmd struct{}

func (s *ShowCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
