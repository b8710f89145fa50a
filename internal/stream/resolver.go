package stream

import (
	"encoding/json"
)

// Argument keys of the task tool.
const (
	ArgSpecialist  = "subagent_type"
	ArgDescription = "description"
)

// Resolve tries to parse inv's buffer as a JSON object. On the first
// successful parse it marks inv dispatched, records the specialist and
// description and returns true. Incomplete JSON is the normal state while
// fragments are arriving and is not an error.
func Resolve(inv *Invocation) bool {
	if inv == nil || inv.Dispatched || inv.Overflowed {
		return false
	}
	raw := inv.buf.String()
	if raw == "" {
		return false
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return false
	}

	inv.Args = args
	inv.Specialist = stringArg(args, ArgSpecialist)
	inv.Description = stringArg(args, ArgDescription)
	inv.Dispatched = true
	return true
}

func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}
