package numista

// Issuer identifies the issuing authority of a catalog type.
type Issuer struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Currency describes the currency of a face value.
type Currency struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Value is the face value of a catalog type.
type Value struct {
	Text         string    `json:"text"`
	NumericValue *float64  `json:"numeric_value"`
	Currency     *Currency `json:"currency"`
}

// ObjectType is the catalog object kind (coin, banknote, exonumia).
type ObjectType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Composition describes the metal content.
type Composition struct {
	Text string `json:"text"`
}

// Face describes one side of a coin.
type Face struct {
	Description         string `json:"description"`
	Lettering           string `json:"lettering"`
	Picture             string `json:"picture"`
	Thumbnail           string `json:"thumbnail"`
	PictureCopyright    string `json:"picture_copyright"`
	PictureCopyrightURL string `json:"picture_copyright_url"`
}

// Mint is a mint that struck the type.
type Mint struct {
	Name string `json:"name"`
}

// Catalogue identifies a reference catalogue.
type Catalogue struct {
	Code string `json:"code"`
}

// Reference is a catalogue number for the type.
type Reference struct {
	Catalogue Catalogue `json:"catalogue"`
	Number    string    `json:"number"`
}

// SearchType is one candidate returned by the type search endpoint.
type SearchType struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Issuer   *Issuer `json:"issuer"`
	MinYear  *int    `json:"min_year"`
	MaxYear  *int    `json:"max_year"`
	Value    *Value  `json:"value,omitempty"`
}

// IssuerName returns the candidate issuer name, or "".
func (s SearchType) IssuerName() string {
	if s.Issuer == nil {
		return ""
	}
	return s.Issuer.Name
}

// SearchResponse models GET /types.
type SearchResponse struct {
	Count int          `json:"count"`
	Types []SearchType `json:"types"`
}

// Type is the full catalog detail returned by GET /types/{id}.
type Type struct {
	ID          int64        `json:"id"`
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	ObjectType  *ObjectType  `json:"object_type"`
	Issuer      *Issuer      `json:"issuer"`
	MinYear     *int         `json:"min_year"`
	MaxYear     *int         `json:"max_year"`
	Value       *Value       `json:"value"`
	Shape       string       `json:"shape"`
	Composition *Composition `json:"composition"`
	Weight      *float64     `json:"weight"`
	Size        *float64     `json:"size"`
	Thickness   *float64     `json:"thickness"`
	Orientation string       `json:"orientation"`
	Obverse     *Face        `json:"obverse"`
	Reverse     *Face        `json:"reverse"`
	Mints       []Mint       `json:"mints"`
	References  []Reference  `json:"references"`
}

// ValueText returns value.text, or "".
func (t *Type) ValueText() string {
	if t == nil || t.Value == nil {
		return ""
	}
	return t.Value.Text
}

// CompositionText returns composition.text, or "".
func (t *Type) CompositionText() string {
	if t == nil || t.Composition == nil {
		return ""
	}
	return t.Composition.Text
}

// IssuerName returns issuer.name, or "".
func (t *Type) IssuerName() string {
	if t == nil || t.Issuer == nil {
		return ""
	}
	return t.Issuer.Name
}
