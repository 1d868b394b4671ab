package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CV is the structured description returned by the reformulation service.
// Every field is optional; a missing or null value decodes to its zero value.
type CV struct {
	FullName          Text         `json:"nom_prenom"`
	JobTitle          Text         `json:"metier"`
	YearsOfExperience Text         `json:"annee_experience"`
	EnglishLevel      Text         `json:"anglais"`
	PlayingField      TextList     `json:"terrain_de_jeu"`
	Skills            TextList     `json:"savoir_faire_metier"`
	Technologies      Technologies `json:"technologies"`
	Formations        []Formation  `json:"formations"`
	Experiences       []Experience `json:"experiences_professionnelles"`
}

// Formation is one education entry.
type Formation struct {
	Title    Text `json:"titre"`
	School   Text `json:"ecole"`
	Location Text `json:"lieu"`
}

// Experience is one professional experience entry.
type Experience struct {
	Start        Text     `json:"date_debut"`
	End          Text     `json:"date_fin"`
	Company      Text     `json:"entreprise"`
	Role         Text     `json:"poste"`
	Context      Text     `json:"contexte"`
	Achievements TextList `json:"realisations"`
	Environment  Text     `json:"environnement"`
}

// Decode parses a CV payload. Unknown fields are ignored.
func Decode(data []byte) (CV, error) {
	var cv CV
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cv, errors.New("empty cv payload")
	}
	if trimmed[0] != '{' {
		return cv, errors.New("cv payload must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, &cv); err != nil {
		return cv, err
	}
	return cv, nil
}

// Text is a string field that also accepts numbers, booleans and lists in
// the payload. Lists are joined with ", ".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	value, err := scalarText(data)
	if err != nil {
		return err
	}
	*t = Text(value)
	return nil
}

func (t Text) String() string {
	return string(t)
}

func scalarText(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var items TextList
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", err
		}
		return strings.Join(items.NonEmpty(), ", "), nil
	case '{':
		return "", fmt.Errorf("expected text, got object")
	default:
		// numbers and booleans keep their literal form
		return string(trimmed), nil
	}
}

// TextList is a list of text values. A single scalar decodes as a one
// element list; an empty string or null decodes as no list.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] != '[' {
		value, err := scalarText(trimmed)
		if err != nil {
			return err
		}
		if value == "" {
			*l = nil
			return nil
		}
		*l = TextList{value}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(TextList, 0, len(raw))
	for _, item := range raw {
		value, err := scalarText(item)
		if err != nil {
			return err
		}
		out = append(out, value)
	}
	*l = out
	return nil
}

// NonEmpty returns the items that are not empty strings, in order.
func (l TextList) NonEmpty() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// TechCategory is one "category: technologies" entry.
type TechCategory struct {
	Name  string
	Items TextList
}

// Technologies keeps the categories in payload order.
type Technologies []TechCategory

func (t *Technologies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("technologies must be an object")
	}

	var out Technologies
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("technologies: unexpected key %v", keyTok)
		}
		var items TextList
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("technologies[%s]: %w", name, err)
		}
		out = append(out, TechCategory{Name: name, Items: items})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

func (t Technologies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(category.Name)
		if err != nil {
			return nil, err
		}
		items := category.Items
		if items == nil {
			items = TextList{}
		}
		value, err := json.Marshal([]string(items))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
