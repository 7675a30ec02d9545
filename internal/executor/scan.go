package executor

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/randcorp/docscope/internal/domain"
)

// parseVectorLiteral parses a pgvector column's text form ("[0.1,0.2,..]")
// back into a []float32, the inverse of planner.vectorLiteral. pgvector
// has no pgx-native OID mapping in this driver version, so vector columns
// come back over the wire as their text representation.
func parseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float32{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// pointFromPG converts a decoded Postgres point into the domain's 2D
// projection coordinate, returning nil when the column was NULL.
func pointFromPG(p pgtype.Point) *domain.Point2D {
	if !p.Valid {
		return nil
	}
	return &domain.Point2D{X: p.P.X, Y: p.P.Y}
}

// postProcessValue converts driver-native values for the two physical
// types the catalog marks specially (vector, point) into JSON-friendly
// shapes; every other column passes through unchanged.
func postProcessValue(logicalType string, raw any) any {
	switch logicalType {
	case "vector":
		switch v := raw.(type) {
		case string:
			vec, err := parseVectorLiteral(v)
			if err != nil {
				return raw
			}
			return vec
		case []byte:
			vec, err := parseVectorLiteral(string(v))
			if err != nil {
				return raw
			}
			return vec
		}
		return raw
	case "point":
		if p, ok := raw.(pgtype.Point); ok {
			return pointFromPG(p)
		}
		return raw
	default:
		return raw
	}
}
