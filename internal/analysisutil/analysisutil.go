// Copyright The Tacet Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analysisutil contains utility functions for the analyses in tacet.
// These functions are in an internal package because they are not important
// enough to be included in the main library.
package analysisutil

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// FindTypePackage finds the package declaring t or returns an error.
// Returns a package name and the name of the type declared in that package.
func FindTypePackage(t types.Type) (string, string, error) {
	switch typ := t.(type) {
	case *types.Pointer:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Named:
		// Return package name, type name
		obj := typ.Obj()
		if obj == nil {
			return "", "", fmt.Errorf("could not get name")
		}
		pkg := obj.Pkg()
		if pkg == nil {
			// obj is in Universe
			return "", obj.Name(), nil
		}
		return pkg.Path(), obj.Name(), nil
	case *types.Array:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Map:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Slice:
		return FindTypePackage(typ.Elem()) // recursive call
	case *types.Chan:
		return FindTypePackage(typ.Elem()) // recursive call
	default:
		// Basic types, tuples, anonymous structs and interfaces, signatures
		return "", "", fmt.Errorf("%s: not a type with a package and name", typ)
	}
}

// CalleePackage returns the path of the package declaring the callee of the
// call, when it can be determined.
func CalleePackage(common *ssa.CallCommon) (string, bool) {
	if common == nil {
		return "", false
	}
	if common.IsInvoke() && common.Method != nil {
		if pkg := common.Method.Pkg(); pkg != nil {
			return pkg.Path(), true
		}
		return "", false
	}
	callee := common.StaticCallee()
	if callee == nil || callee.Pkg == nil {
		return "", false
	}
	return callee.Pkg.Pkg.Path(), true
}

// FieldAddrFieldName finds the name of a field access in ssa.FieldAddr
// if it cannot find a proper field name, returns "?"
func FieldAddrFieldName(fieldAddr *ssa.FieldAddr) string {
	return getFieldNameFromType(fieldAddr.X.Type().Underlying(), fieldAddr.Field)
}

// FieldFieldName finds the name of a field access in ssa.Field
// if it cannot find a proper field name, returns "?"
func FieldFieldName(field *ssa.Field) string {
	return getFieldNameFromType(field.X.Type().Underlying(), field.Field)
}

func getFieldNameFromType(t types.Type, i int) string {
	switch typ := t.(type) {
	case *types.Pointer:
		return getFieldNameFromType(typ.Elem().Underlying(), i) // recursive call
	case *types.Struct:
		// Get the field name given its index
		fieldName := "?"
		if 0 <= i && i < typ.NumFields() {
			fieldName = typ.Field(i).Name()
		}
		return fieldName
	default:
		return "?"
	}
}
