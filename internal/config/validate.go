package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// KnownFormats enumerates the output formats the pipeline can build.
var KnownFormats = []string{"pdf", "docx", "html"}

// Validate checks structural invariants of a loaded configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Project,
		validation.Field(&c.Project.Name, validation.Required),
		validation.Field(&c.Project.SourceDir, validation.Required),
		validation.Field(&c.Project.OutputDir, validation.Required),
	); err != nil {
		return err
	}

	return validation.ValidateStruct(&c.Build,
		validation.Field(&c.Build.Formats,
			validation.Required,
			validation.Each(validation.In(formatValues()...)),
		),
		validation.Field(&c.Build.Jobs, validation.Min(1)),
		validation.Field(&c.Build.Converter, validation.Required),
	)
}

func formatValues() []any {
	vals := make([]any, 0, len(KnownFormats))
	for _, f := range KnownFormats {
		vals = append(vals, f)
	}
	return vals
}
