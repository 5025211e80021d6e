package svc

import (
	"fmt"
	"reflect"

	"github.com/kosheo/backtestcore/internal/candidate"
	"github.com/kosheo/backtestcore/internal/optimize"
)

// applyCombination copies base and overrides the named fields on whichever
// per-family config is set, by name, via reflection — the generic
// counterpart of the teacher's addDefaultFields walk in
// handlers_settings_defaults.go, here used to write instead of read.
func applyCombination(base candidate.Config, combo optimize.Combination) candidate.Config {
	out := base

	var target reflect.Value
	switch {
	case out.RangeBreakout != nil:
		cp := *out.RangeBreakout
		out.RangeBreakout = &cp
		target = reflect.ValueOf(out.RangeBreakout).Elem()
	case out.BreakRetest != nil:
		cp := *out.BreakRetest
		out.BreakRetest = &cp
		target = reflect.ValueOf(out.BreakRetest).Elem()
	case out.FVGRetrace != nil:
		cp := *out.FVGRetrace
		out.FVGRetrace = &cp
		target = reflect.ValueOf(out.FVGRetrace).Elem()
	case out.TrendPullback != nil:
		cp := *out.TrendPullback
		out.TrendPullback = &cp
		target = reflect.ValueOf(out.TrendPullback).Elem()
	case out.MeanReversion != nil:
		cp := *out.MeanReversion
		out.MeanReversion = &cp
		target = reflect.ValueOf(out.MeanReversion).Elem()
	default:
		return out
	}

	for field, value := range combo {
		setField(target, field, value)
	}
	return out
}

func setField(v reflect.Value, name string, value any) {
	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanSet() {
		return
	}

	rv := reflect.ValueOf(value)
	switch f.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		if n, ok := asFloat(value); ok {
			f.SetInt(int64(n))
		}
	case reflect.Float32, reflect.Float64:
		if n, ok := asFloat(value); ok {
			f.SetFloat(n)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			f.SetBool(b)
		}
	case reflect.String:
		if s, ok := value.(string); ok {
			f.SetString(s)
		} else if rv.IsValid() && rv.Type().ConvertibleTo(f.Type()) {
			f.Set(rv.Convert(f.Type()))
		}
	default:
		if rv.IsValid() && rv.Type().AssignableTo(f.Type()) {
			f.Set(rv)
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fieldNames reports the exported field names of whichever per-family
// config is set, for validating grid.Fields at request time.
func fieldNames(cfg candidate.Config) ([]string, error) {
	var t reflect.Type
	switch {
	case cfg.RangeBreakout != nil:
		t = reflect.TypeOf(*cfg.RangeBreakout)
	case cfg.BreakRetest != nil:
		t = reflect.TypeOf(*cfg.BreakRetest)
	case cfg.FVGRetrace != nil:
		t = reflect.TypeOf(*cfg.FVGRetrace)
	case cfg.TrendPullback != nil:
		t = reflect.TypeOf(*cfg.TrendPullback)
	case cfg.MeanReversion != nil:
		t = reflect.TypeOf(*cfg.MeanReversion)
	default:
		return nil, fmt.Errorf("base strategy config selects no family")
	}
	names := make([]string, t.NumField())
	for i := range names {
		names[i] = t.Field(i).Name
	}
	return names, nil
}
