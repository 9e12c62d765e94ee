package textconv

import "github.com/cidlib/macroeng/internal/classmeta"

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

func runeArg(args []*classmeta.ValueObject, i int) rune {
	if i < len(args) && args[i] != nil {
		if r, ok := args[i].Payload.(rune); ok {
			return r
		}
	}
	return 0
}

func bytesArg(args []*classmeta.ValueObject, i int) []byte {
	if i < len(args) && args[i] != nil {
		if b, ok := args[i].Payload.([]byte); ok {
			return b
		}
	}
	return nil
}
