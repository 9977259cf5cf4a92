package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind distinguishes the two item categories a group plans with.
type Kind string

const (
	KindHotel    Kind = "hotel"
	KindActivity Kind = "activity"
)

// ParseKind validates an externally supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindHotel:
		return KindHotel, nil
	case KindActivity:
		return KindActivity, nil
	default:
		return "", fmt.Errorf("unknown kind %q: %w", s, ErrInvalidPayload)
	}
}

// Payload holds the descriptive attributes of a candidate hotel or activity.
// The planner only interprets the identity fields (Name, ProviderCode) and the
// scheduling hints; everything else is carried through to the client verbatim.
type Payload struct {
	Name         string   `json:"name"`
	ProviderCode string   `json:"provider_code,omitempty"`
	Region       string   `json:"region,omitempty"`
	Description  string   `json:"description,omitempty"`
	PriceLevel   string   `json:"price_level,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	DurationHint string   `json:"duration_hint,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	CheckInDay   int      `json:"check_in_day,omitempty"`
	CheckOutDay  int      `json:"check_out_day,omitempty"`
	Score        float64  `json:"score,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// NormalizeName lowercases and collapses all interior whitespace so that
// "Grand  Hotel " and "grand hotel" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// SubjectKey is the normalized identity under which an item is stored:
// the provider code when present, otherwise the normalized name.
func SubjectKey(p Payload) string {
	if code := strings.TrimSpace(p.ProviderCode); code != "" {
		return "code:" + code
	}
	return "name:" + NormalizeName(p.Name)
}

// SameSubject reports whether two candidates refer to the same real-world
// place. Two items match if both carry a non-empty provider code and the
// codes are equal, or if their normalized names are equal. A name match is
// accepted even when the provider codes differ: a renamed or re-listed entry
// for the same place still counts as covered.
func SameSubject(a, b Payload) bool {
	ac, bc := strings.TrimSpace(a.ProviderCode), strings.TrimSpace(b.ProviderCode)
	if ac != "" && bc != "" && ac == bc {
		return true
	}
	an, bn := NormalizeName(a.Name), NormalizeName(b.Name)
	return an != "" && an == bn
}

// NormalizeCandidate converts the loosely-shaped candidate objects emitted by
// suggestion providers and clients into a typed Payload. Accepted shapes:
// a bare JSON string (treated as the name), or an object whose name may be
// under "name" or "title" and whose provider code may be under
// "provider_code", "code" or "provider_id". A candidate without a name is
// rejected with ErrInvalidPayload rather than carried forward ambiguous.
func NormalizeCandidate(raw json.RawMessage) (Payload, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Payload{}, fmt.Errorf("empty candidate: %w", ErrInvalidPayload)
	}

	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return Payload{}, fmt.Errorf("malformed candidate string: %w", ErrInvalidPayload)
		}
		if strings.TrimSpace(name) == "" {
			return Payload{}, fmt.Errorf("candidate name empty: %w", ErrInvalidPayload)
		}
		return Payload{Name: strings.TrimSpace(name)}, nil
	}

	var loose struct {
		Payload
		Title        string `json:"title"`
		Code         string `json:"code"`
		ProviderID   string `json:"provider_id"`
		Area         string `json:"area"`
		Neighborhood string `json:"neighborhood"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return Payload{}, fmt.Errorf("malformed candidate object: %w", ErrInvalidPayload)
	}

	p := loose.Payload
	if p.Name == "" {
		p.Name = loose.Title
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Payload{}, fmt.Errorf("candidate name missing: %w", ErrInvalidPayload)
	}
	if p.ProviderCode == "" {
		p.ProviderCode = loose.Code
	}
	if p.ProviderCode == "" {
		p.ProviderCode = loose.ProviderID
	}
	p.ProviderCode = strings.TrimSpace(p.ProviderCode)
	if p.Region == "" {
		p.Region = loose.Area
	}
	if p.Region == "" {
		p.Region = loose.Neighborhood
	}
	return p, nil
}
