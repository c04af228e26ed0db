package builtin

import (
	"context"
	"fmt"

	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
)

// Weather returns the get_weather tool, it always reports fine weather
func Weather() *tools.Descriptor {
	return &tools.Descriptor{
		Name:        ToolGetWeather,
		Description: "Get the current weather for a specific location.",
		Params: []tools.Param{
			{
				Name:        "location",
				Type:        schema.TypeString,
				Required:    true,
				Description: `The city or location name (e.g., "New York", "London")`,
			},
		},
		Func: func(_ context.Context, args tools.Args) (string, error) {
			return fmt.Sprintf("The weather in %s is sunny, 72°F with light winds.", args.String(0)), nil
		},
	}
}
