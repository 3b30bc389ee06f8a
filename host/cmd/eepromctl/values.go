package main

import (
	"fmt"
	"strconv"

	"regbus/core"
	"regbus/eeprom"
)

// valueType binds one numeric type name to typed register and field access.
type valueType struct {
	bytes int
	read  func(ep core.Endpoint, reg uint8, n int) []string
	write func(ep core.Endpoint, reg uint8, args []string) error
	get   func(m *eeprom.EEPROM, name string) string
	set   func(m *eeprom.EEPROM, name, arg string) error
}

var valueTypes = map[string]valueType{
	"u8":  newValueType(unsigned[uint8](8)),
	"u16": newValueType(unsigned[uint16](16)),
	"u32": newValueType(unsigned[uint32](32)),
	"u64": newValueType(unsigned[uint64](64)),
	"i8":  newValueType(signed[int8](8)),
	"i16": newValueType(signed[int16](16)),
	"i32": newValueType(signed[int32](32)),
	"i64": newValueType(signed[int64](64)),
	"f32": newValueType(float[float32](32)),
	"f64": newValueType(float[float64](64)),
}

func lookupType(name string) (valueType, error) {
	vt, ok := valueTypes[name]
	if !ok {
		return valueType{}, fmt.Errorf("unknown type %q (u8..u64, i8..i64, f32, f64)", name)
	}
	return vt, nil
}

func newValueType[T core.Value](parse func(string) (T, error)) valueType {
	parseAll := func(args []string) ([]T, error) {
		out := make([]T, len(args))
		for i, a := range args {
			v, err := parse(a)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return valueType{
		bytes: core.SizeOf[T](),
		read: func(ep core.Endpoint, reg uint8, n int) []string {
			vs := core.Read[T](ep, reg, n)
			out := make([]string, len(vs))
			for i, v := range vs {
				out[i] = fmt.Sprint(v)
			}
			return out
		},
		write: func(ep core.Endpoint, reg uint8, args []string) error {
			vs, err := parseAll(args)
			if err != nil {
				return err
			}
			core.Write(ep, reg, vs...)
			return nil
		},
		get: func(m *eeprom.EEPROM, name string) string {
			return fmt.Sprint(eeprom.ReadNamed[T](m, name))
		},
		set: func(m *eeprom.EEPROM, name, arg string) error {
			v, err := parse(arg)
			if err != nil {
				return err
			}
			eeprom.WriteNamed(m, name, v)
			return nil
		},
	}
}

func unsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

func signed[T ~int8 | ~int16 | ~int32 | ~int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	}
}

func float[T ~float32 | ~float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	}
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}
