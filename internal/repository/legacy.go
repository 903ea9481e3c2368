package repository

import (
	"strings"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// Legacy defaults applied when a pre-migration row carries no tag.
const (
	LegacyMonedaDefault = "PEN"
)

// ParseLegacyTags extracts [MONEDA:...] and [SENTIDO:...] tags from a
// free-text notes field. This is the one-time import path for rows persisted
// before the dedicated typed columns existed; steady-state rows never hit it
// with a non-empty value.
func ParseLegacyTags(notas string) (string, domain.Sentido) {
	moneda := LegacyMonedaDefault
	sentido := domain.SentidoAmbos

	if v, ok := bracketTag(notas, "MONEDA"); ok {
		moneda = v
	}
	if v, ok := bracketTag(notas, "SENTIDO"); ok {
		switch domain.Sentido(v) {
		case domain.SentidoIda, domain.SentidoVuelta, domain.SentidoAmbos:
			sentido = domain.Sentido(v)
		}
	}
	return moneda, sentido
}

func bracketTag(s, key string) (string, bool) {
	marker := "[" + key + ":"
	start := strings.Index(s, marker)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(marker):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return "", false
	}
	value := strings.TrimSpace(rest[:end])
	if value == "" {
		return "", false
	}
	return value, true
}
