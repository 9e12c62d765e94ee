package services

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/sandbox"
)

func intArg(args []*classmeta.ValueObject, i int) int {
	if i >= len(args) || args[i] == nil {
		return 0
	}
	switch v := args[i].Payload.(type) {
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

func strArg(args []*classmeta.ValueObject, i int) string {
	if i < len(args) && args[i] != nil {
		if s, ok := args[i].Payload.(string); ok {
			return s
		}
	}
	return ""
}

func boolArg(args []*classmeta.ValueObject, i int) bool {
	if i < len(args) && args[i] != nil {
		if b, ok := args[i].Payload.(bool); ok {
			return b
		}
	}
	return false
}

func bytesArg(args []*classmeta.ValueObject, i int) []byte {
	if i < len(args) && args[i] != nil {
		if b, ok := args[i].Payload.([]byte); ok {
			return b
		}
	}
	return nil
}

// resolvePath expands a macro-level path through the sandbox resolver
// when one is configured, the same helper streams.resolvePath provides
// for text streams.
func resolvePath(ctx runtimeclass.EngineContext, macroPath string) (string, error) {
	base := ctx.SandboxBase()
	if base == "" {
		return macroPath, nil
	}
	return sandbox.NewPathResolver(base).Expand(macroPath)
}
