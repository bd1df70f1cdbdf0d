/* Copyright 2026 Whisper CMS Contributors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package script hosts untrusted JavaScript on a goja runtime and
// moves values across the boundary as JSON-equivalent Go data.
//
// An Engine is not safe for concurrent use.  Callers are expected to
// confine each Engine to a single goroutine (the actors in package
// runtime lock that goroutine to an OS thread).
package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// EvalError is a failure to evaluate script source.
type EvalError struct {
	Module string
	Msg    string
}

func (e *EvalError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("eval error in %s: %s", e.Module, e.Msg)
	}
	return "eval error: " + e.Msg
}

// CallError is a failure to call a script function: the path didn't
// resolve to something callable, or the function threw.
type CallError struct {
	Path string
	Msg  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call error at %s: %s", e.Path, e.Msg)
}

// ConversionError is a script value that cannot cross the boundary.
type ConversionError struct {
	Msg string
}

func (e *ConversionError) Error() string { return "conversion error: " + e.Msg }

// IsNotFunction reports whether err is a call against something that
// isn't a function, which hook dispatch treats as "hook not provided".
func IsNotFunction(err error) bool {
	return err != nil && strings.Contains(err.Error(), "is not a function")
}

// Engine wraps one goja runtime.
type Engine struct {
	vm        *goja.Runtime
	jsonParse goja.Callable
}

// New returns a fresh engine with an empty global scope.
func New() *Engine {
	vm := goja.New()
	jsonObj := vm.Get("JSON").ToObject(vm)
	parse, _ := goja.AssertFunction(jsonObj.Get("parse"))
	return &Engine{vm: vm, jsonParse: parse}
}

// Evaluate runs source in the global scope and returns its completion
// value bridged to Go data.
func (e *Engine) Evaluate(source string) (interface{}, error) {
	v, err := e.vm.RunString(source)
	if err != nil {
		return nil, &EvalError{Msg: err.Error()}
	}
	return e.bridgeOut(v)
}

// LoadModule evaluates source for its side effects.  Modules are
// expected to attach their export object to a global slot (typically
// named after the module); name is only used for error reporting.
func (e *Engine) LoadModule(name, source string) error {
	if _, err := e.vm.RunString(source); err != nil {
		return &EvalError{Module: name, Msg: err.Error()}
	}
	return nil
}

// Call resolves path against the global object, one dotted segment at
// a time, and invokes the terminal value with this bound to its parent
// object.  Arguments and the result cross the bridge as JSON data.
//
// Any resolution miss reads the same as calling a non-function, so
// callers can probe for optional hooks with IsNotFunction.
func (e *Engine) Call(path string, args ...interface{}) (interface{}, error) {
	segs := strings.Split(path, ".")

	var parent goja.Value = goja.Undefined()
	var v goja.Value = e.vm.GlobalObject()
	for _, seg := range segs {
		if goja.IsUndefined(v) || goja.IsNull(v) {
			return nil, &CallError{Path: path, Msg: path + " is not a function"}
		}
		parent = v
		v = v.ToObject(e.vm).Get(seg)
		if v == nil {
			v = goja.Undefined()
		}
	}

	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, &CallError{Path: path, Msg: path + " is not a function"}
	}

	jsArgs := make([]goja.Value, 0, len(args))
	for _, a := range args {
		v, err := e.toJS(a)
		if err != nil {
			return nil, err
		}
		jsArgs = append(jsArgs, v)
	}

	res, err := fn(parent, jsArgs...)
	if err != nil {
		return nil, &CallError{Path: path, Msg: err.Error()}
	}
	return e.bridgeOut(res)
}

// toJS converts an argument to an engine value.  Structured data goes
// through the engine's own JSON parser so scripts receive plain JS
// objects and arrays.  Handing goja a live Go map or slice instead
// would wrap it: a script push onto a wrapped nested slice reallocates
// the backing array without the parent ever seeing the new one, and
// the mutation is lost.
func (e *Engine) toJS(a interface{}) (goja.Value, error) {
	switch a.(type) {
	case nil:
		return goja.Null(), nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return e.vm.ToValue(a), nil
	}
	bs, err := json.Marshal(a)
	if err != nil {
		return nil, &ConversionError{Msg: err.Error()}
	}
	v, err := e.jsonParse(goja.Undefined(), e.vm.ToValue(string(bs)))
	if err != nil {
		return nil, &ConversionError{Msg: err.Error()}
	}
	return v, nil
}

func (e *Engine) bridgeOut(v goja.Value) (interface{}, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return Canonicalize(v.Export())
}
