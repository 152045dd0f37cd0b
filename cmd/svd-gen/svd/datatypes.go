package svd

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Integer is an SVD scaledNonNegativeInteger: decimal, 0x hex or #binary.
type Integer uint64

func (h *Integer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v string
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	value, err := ParseInteger(v)
	if err != nil {
		return err
	}
	*h = value
	return nil
}

func ParseInteger(text string) (Integer, error) {
	v := strings.TrimSpace(text)
	base := 10
	switch {
	case strings.HasPrefix(v, "0x"), strings.HasPrefix(v, "0X"):
		v, base = v[2:], 16
	case strings.HasPrefix(v, "#"):
		v, base = v[1:], 2
	}
	value, err := strconv.ParseUint(v, base, 64)
	if err != nil {
		return 0, err
	}
	return Integer(value), nil
}
