package config

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/marmos91/sftpbox/internal/bytesize"
	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
)

// Schema returns the JSON schema of the configuration file. Durations,
// byte sizes and file modes are described as the strings users write.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
		Mapper:                    schemaMapper,
	}

	schema := reflector.Reflect(&Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "sftpbox Configuration"
	schema.Description = "Configuration schema for the sftpbox SFTP server"
	return schema
}

func schemaMapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
			Description: "Duration such as 30s, 5m or 1h30m",
		}
	case reflect.TypeOf(bytesize.ByteSize(0)):
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "string", Pattern: `^\s*[0-9]+(\.[0-9]+)?\s*([KkMmGgTt][Ii]?[Bb]?|[Bb])?\s*$`},
				{Type: "integer", Minimum: "0"},
			},
			Description: "Size in bytes, or with a unit such as 256KiB or 1MB",
		}
	case reflect.TypeOf(sftp.FileMode(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     `^(0o)?[0-7]{1,4}$`,
			Description: "Octal permission mode such as 0775",
		}
	}
	return nil
}
