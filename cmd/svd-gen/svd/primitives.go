// Package svd decodes the subset of CMSIS System View Description files the
// table generator reads.
package svd

import (
	"encoding/xml"
	"io"
)

type DeviceElement struct {
	Name          string             `xml:"name"`
	Description   string             `xml:"description"`
	Series        string             `xml:"series"`
	Version       string             `xml:"version"`
	Vendor        string             `xml:"vendor"`
	CPU           CPUElement         `xml:"cpu"`
	BitWidth      Integer            `xml:"width"`
	RegisterSize  Integer            `xml:"size"`
	DefaultAccess string             `xml:"access"`
	ResetValue    Integer            `xml:"resetValue"`
	Peripherals   PeripheralsElement `xml:"peripherals"`
}

type CPUElement struct {
	Name             string  `xml:"name"`
	Revision         string  `xml:"revision"`
	Endian           string  `xml:"endian"`
	MPUPresent       bool    `xml:"mpuPresent"`
	FPUPresent       bool    `xml:"fpuPresent"`
	NVICPriorityBits Integer `xml:"nvicPrioBits"`
}

type PeripheralsElement struct {
	Elements []PeripheralElement `xml:"peripheral"`
}

// Find returns the index of the peripheral called name.
func (p PeripheralsElement) Find(name string) (int, bool) {
	if len(name) > 0 {
		for i, pp := range p.Elements {
			if pp.Name == name {
				return i, true
			}
		}
	}
	return -1, false
}

// Derived returns the peripherals declared with derivedFrom=name.
func (p PeripheralsElement) Derived(name string) []PeripheralElement {
	var out []PeripheralElement
	for _, pp := range p.Elements {
		if pp.DerivedFrom == name {
			out = append(out, pp)
		}
	}
	return out
}

type PeripheralElement struct {
	Name        string             `xml:"name"`
	Description string             `xml:"description"`
	Group       string             `xml:"groupName"`
	BaseAddress Integer            `xml:"baseAddress"`
	Interrupts  []InterruptElement `xml:"interrupt"`
	Registers   RegistersElement   `xml:"registers"`
	DerivedFrom string             `xml:"derivedFrom,attr"`
}

type InterruptElement struct {
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	Value       Integer `xml:"value"`
}

type RegistersElement struct {
	RegisterElements []RegisterElement `xml:"register"`
}

type RegisterElement struct {
	Name          string        `xml:"name"`
	Description   string        `xml:"description"`
	AddressOffset Integer       `xml:"addressOffset"`
	Size          Integer       `xml:"size"`
	Access        string        `xml:"access"`
	ResetValue    Integer       `xml:"resetValue"`
	Fields        FieldElements `xml:"fields"`
}

type FieldElements struct {
	Elements []FieldElement `xml:"field"`
}

type FieldElement struct {
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	BitOffset   Integer `xml:"bitOffset"`
	BitWidth    Integer `xml:"bitWidth"`
	Access      string  `xml:"access"`
}

// Decode reads a device description.
func Decode(r io.Reader) (DeviceElement, error) {
	var device DeviceElement
	err := xml.NewDecoder(r).Decode(&device)
	return device, err
}
