package enrichment

import (
	"strings"
	"time"

	"coinenrich/internal/numista"
)

// Snapshot builds the catalog snapshot stored under the numista field. Empty
// values are pruned, and nested objects left empty are dropped.
func Snapshot(detail *numista.Type, language string, fetchedAt time.Time) map[string]any {
	if detail == nil {
		return map[string]any{}
	}
	raw := map[string]any{
		"id":          positiveInt64(detail.ID),
		"url":         detail.URL,
		"title":       detail.Title,
		"lang":        language,
		"shape":       detail.Shape,
		"composition": detail.CompositionText(),
		"weight":      floatValue(detail.Weight),
		"size":        floatValue(detail.Size),
		"thickness":   floatValue(detail.Thickness),
		"orientation": detail.Orientation,
		"obverse":     faceSnapshot(detail.Obverse),
		"reverse":     faceSnapshot(detail.Reverse),
		"years": map[string]any{
			"min": intValue(detail.MinYear),
			"max": intValue(detail.MaxYear),
		},
		"fetchedAt": fetchedAt.UTC().Format(time.RFC3339),
	}
	if detail.ObjectType != nil {
		raw["objectType"] = map[string]any{
			"id":   positiveInt64(detail.ObjectType.ID),
			"name": detail.ObjectType.Name,
		}
	}
	if detail.Issuer != nil {
		raw["issuer"] = map[string]any{
			"code": detail.Issuer.Code,
			"name": detail.Issuer.Name,
		}
	}
	if detail.Value != nil {
		value := map[string]any{
			"text":         detail.Value.Text,
			"numericValue": floatValue(detail.Value.NumericValue),
		}
		if c := detail.Value.Currency; c != nil {
			value["currency"] = map[string]any{
				"id":       positiveInt64(c.ID),
				"name":     c.Name,
				"fullName": c.FullName,
			}
		}
		raw["value"] = value
	}
	pruned, _ := prune(raw).(map[string]any)
	if pruned == nil {
		return map[string]any{}
	}
	return pruned
}

func faceSnapshot(face *numista.Face) any {
	if face == nil {
		return nil
	}
	return map[string]any{
		"description":         face.Description,
		"lettering":           face.Lettering,
		"picture":             face.Picture,
		"thumbnail":           face.Thumbnail,
		"pictureCopyright":    face.PictureCopyright,
		"pictureCopyrightUrl": face.PictureCopyrightURL,
	}
}

// prune drops nil values, blank strings and maps left empty. It returns nil
// when nothing survives.
func prune(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		return value
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, entry := range value {
			if kept := prune(entry); kept != nil {
				out[key] = kept
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return value
	}
}

func positiveInt64(v int64) any {
	if v <= 0 {
		return nil
	}
	return v
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
