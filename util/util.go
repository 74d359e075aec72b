package util

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz")

func Randstring(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

func StructMap(s any) map[string]any {
	out := map[string]any{}
	typ := reflect.TypeOf(s)
	struc := reflect.ValueOf(s)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
		struc = struc.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		out[name] = struc.FieldByName(name).Interface()
	}
	return out
}

func LastNonEmptyLine(out []byte) string {
	lines := strings.Split(string(out), "\n")
	offset := 0
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			offset = len(lines) - i
			break
		}
	}
	line := lines[len(lines)-offset]
	return line
}

// Round to n decimal places, matching how rates appear in the result files.
func Round(v float64, n int) float64 {
	p := math.Pow10(n)
	return math.Round(v*p) / p
}
