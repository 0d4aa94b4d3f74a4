// Package extractor pulls lead fields out of arbitrary ad-platform and
// form submissions. Field names vary wildly across builders, so matching
// is best effort over common pt-BR and UTM key patterns.
package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Extracted holds whatever lead fields could be recognized.
type Extracted struct {
	Name              string
	Phone             string
	Email             string
	ServiceOfInterest string
	AdName            string
	Source            string
	// Incomplete marks submissions missing a name or any contact field.
	Incomplete bool
}

var (
	nameKeys    = regexp.MustCompile(`(?i)^(nome|name|full[_ -]?name|nome[_ -]?completo)$`)
	phoneKeys   = regexp.MustCompile(`(?i)^(telefone|tel|phone|celular|whatsapp|fone|mobile)$`)
	emailKeys   = regexp.MustCompile(`(?i)^(e-?mail|email[_ -]?address)$`)
	serviceKeys = regexp.MustCompile(`(?i)^(servi[cç]o([_ -]?de[_ -]?interesse)?|interesse|procedimento|tratamento|service)$`)
	adKeys      = regexp.MustCompile(`(?i)^(ad[_ -]?name|utm[_ -]?campaign|campanha|campaign([_ -]?name)?|anuncio|an[úu]ncio)$`)
	sourceKeys  = regexp.MustCompile(`(?i)^(utm[_ -]?source|origem|source|fonte)$`)

	emailValue = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneValue = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}`)
)

// Extract scans a flat key/value payload for lead fields. Nested
// payloads are flattened by the caller. Keys are visited in sorted
// order so two matching keys always resolve to the same field, and a
// matched field is never overwritten.
func Extract(payload map[string]string) Extracted {
	var out Extracted

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Keys first: an explicit "telefone" field beats a phone-looking
	// value inside a message body.
	for _, key := range keys {
		value := strings.TrimSpace(payload[key])
		if value == "" {
			continue
		}
		switch {
		case out.Name == "" && nameKeys.MatchString(key):
			out.Name = value
		case out.Phone == "" && phoneKeys.MatchString(key):
			out.Phone = value
		case out.Email == "" && emailKeys.MatchString(key):
			out.Email = value
		case out.ServiceOfInterest == "" && serviceKeys.MatchString(key):
			out.ServiceOfInterest = value
		case out.AdName == "" && adKeys.MatchString(key):
			out.AdName = value
		case out.Source == "" && sourceKeys.MatchString(key):
			out.Source = value
		}
	}

	// Fall back to value shapes for contact fields.
	if out.Email == "" || out.Phone == "" {
		for _, key := range keys {
			value := payload[key]
			if out.Email == "" {
				if m := emailValue.FindString(value); m != "" {
					out.Email = m
				}
			}
			if out.Phone == "" {
				if m := phoneValue.FindString(value); m != "" {
					out.Phone = strings.TrimSpace(m)
				}
			}
		}
	}

	out.Incomplete = out.Name == "" || (out.Phone == "" && out.Email == "")
	return out
}

// Flatten turns a decoded JSON object into a flat key/value map.
// Nested objects contribute their leaf keys; arrays are ignored.
func Flatten(payload map[string]interface{}) map[string]string {
	flat := make(map[string]string, len(payload))
	flattenInto(flat, payload)
	return flat
}

func flattenInto(flat map[string]string, payload map[string]interface{}) {
	for key, value := range payload {
		switch typed := value.(type) {
		case string:
			flat[key] = typed
		case float64:
			flat[key] = strconv.FormatFloat(typed, 'f', -1, 64)
		case bool:
			flat[key] = strconv.FormatBool(typed)
		case map[string]interface{}:
			flattenInto(flat, typed)
		}
	}
}
