package record

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoRecord is returned when a response parses but holds no record.
var ErrNoRecord = errors.New("no record element in response")

// Response is a parsed SRU searchRetrieve response.
type Response struct {
	NumberOfRecords int
	Records         []*Record
}

// First returns the first record of the response.
func (r *Response) First() (*Record, error) {
	if len(r.Records) == 0 {
		return nil, ErrNoRecord
	}
	return r.Records[0], nil
}

// XML shapes of the SRU envelope (srw:) around unimarcXchange records (mxc:).
// encoding/xml matches on local names, so the namespace prefixes don't matter.
type sruResponse struct {
	XMLName         xml.Name    `xml:"searchRetrieveResponse"`
	NumberOfRecords int         `xml:"numberOfRecords"`
	Records         []sruRecord `xml:"records>record"`
}

type sruRecord struct {
	Identifier string `xml:"recordIdentifier"`
	Data       struct {
		Record marcRecord `xml:"record"`
	} `xml:"recordData"`
	Extra *extraXML `xml:"extraRecordData"`
}

type marcRecord struct {
	ID            string            `xml:"id,attr"`
	Leader        string            `xml:"leader"`
	Controlfields []controlfieldXML `xml:"controlfield"`
	Datafields    []datafieldXML    `xml:"datafield"`
}

type controlfieldXML struct {
	Tag  string `xml:"tag,attr"`
	Text string `xml:",chardata"`
}

type datafieldXML struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Subfields []subfieldXML `xml:"subfield"`
}

type subfieldXML struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

type extraXML struct {
	Attrs []struct {
		Name string `xml:"name,attr"`
		Text string `xml:",chardata"`
	} `xml:"attr"`
}

// Parse decodes an SRU searchRetrieve response with unimarcXchange records.
func Parse(r io.Reader) (*Response, error) {
	var doc sruResponse
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse SRU response: empty document")
		}
		return nil, fmt.Errorf("failed to parse SRU response: %w", err)
	}

	resp := &Response{
		NumberOfRecords: doc.NumberOfRecords,
		Records:         make([]*Record, 0, len(doc.Records)),
	}
	for _, sr := range doc.Records {
		resp.Records = append(resp.Records, convert(sr))
	}
	return resp, nil
}

// ParseFirst decodes a response and returns its first record.
func ParseFirst(r io.Reader) (*Record, error) {
	resp, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return resp.First()
}

// ParseString is ParseFirst over an in-memory payload.
func ParseString(payload string) (*Record, error) {
	return ParseFirst(strings.NewReader(payload))
}

func convert(sr sruRecord) *Record {
	mr := sr.Data.Record
	rec := &Record{
		Identifier:    strings.TrimSpace(sr.Identifier),
		Leader:        mr.Leader,
		Controlfields: make([]Controlfield, 0, len(mr.Controlfields)),
		Datafields:    make([]Datafield, 0, len(mr.Datafields)),
	}
	if rec.Identifier == "" {
		rec.Identifier = mr.ID
	}

	for _, cf := range mr.Controlfields {
		rec.Controlfields = append(rec.Controlfields, Controlfield{Tag: cf.Tag, Text: cf.Text})
	}

	for _, df := range mr.Datafields {
		field := Datafield{
			Tag:       df.Tag,
			Ind1:      df.Ind1,
			Ind2:      df.Ind2,
			Subfields: make([]Subfield, 0, len(df.Subfields)),
		}
		for _, sf := range df.Subfields {
			field.Subfields = append(field.Subfields, Subfield{Code: sf.Code, Text: sf.Text})
		}
		rec.Datafields = append(rec.Datafields, field)
	}

	if sr.Extra != nil {
		rec.Extra = &ExtraRecordData{}
		for _, a := range sr.Extra.Attrs {
			rec.Extra.Attrs = append(rec.Extra.Attrs, Attr{Name: a.Name, Text: a.Text})
		}
	}

	return rec
}
