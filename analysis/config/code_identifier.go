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

package config

import (
	"regexp"
)

// A CodeIdentifier identifies a code element that can realize an observable event of a
// monitor. A code identifier can be identified from its package, method, receiver, field
// or type, or any combination of those.
type CodeIdentifier struct {
	Package  string
	Method   string
	Receiver string
	Field    string
	Type     string
	// computedRegexs is not part of the yaml config
	computedRegexs *codeIdentifierRegex
}

type codeIdentifierRegex struct {
	packageRegex  *regexp.Regexp
	typeRegex     *regexp.Regexp
	methodRegex   *regexp.Regexp
	fieldRegex    *regexp.Regexp
	receiverRegex *regexp.Regexp
}

// CompileRegexes compiles the strings in the code identifier into regexes. It compiles
// all identifiers into regexes or none: if any field fails to compile, the identifier is
// returned unchanged and matching falls back to string equality.
func CompileRegexes(cid CodeIdentifier) CodeIdentifier {
	packageRegex, err := regexp.Compile(cid.Package)
	if err != nil {
		return cid
	}
	typeRegex, err := regexp.Compile(cid.Type)
	if err != nil {
		return cid
	}
	methodRegex, err := regexp.Compile(cid.Method)
	if err != nil {
		return cid
	}
	fieldRegex, err := regexp.Compile(cid.Field)
	if err != nil {
		return cid
	}
	receiverRegex, err := regexp.Compile(cid.Receiver)
	if err != nil {
		return cid
	}
	cid.computedRegexs = &codeIdentifierRegex{
		packageRegex,
		typeRegex,
		methodRegex,
		fieldRegex,
		receiverRegex,
	}
	return cid
}

// MatchesOnNonEmptyFields returns true if each field of the reference identifier cidRef is
// either empty, or matches the corresponding field of cid. When cidRef has been compiled
// with CompileRegexes the fields match as regexes, otherwise as plain strings.
func (cid *CodeIdentifier) MatchesOnNonEmptyFields(cidRef CodeIdentifier) bool {
	if cidRef.computedRegexs != nil {
		return (cidRef.computedRegexs.packageRegex.MatchString(cid.Package) || cidRef.Package == "") &&
			(cidRef.computedRegexs.methodRegex.MatchString(cid.Method) || cidRef.Method == "") &&
			(cidRef.computedRegexs.receiverRegex.MatchString(cid.Receiver) || cidRef.Receiver == "") &&
			(cidRef.computedRegexs.fieldRegex.MatchString(cid.Field) || cidRef.Field == "") &&
			(cidRef.computedRegexs.typeRegex.MatchString(cid.Type) || cidRef.Type == "")
	}
	return (cid.Package == cidRef.Package || cidRef.Package == "") &&
		(cid.Method == cidRef.Method || cidRef.Method == "") &&
		(cid.Receiver == cidRef.Receiver || cidRef.Receiver == "") &&
		(cid.Field == cidRef.Field || cidRef.Field == "") &&
		(cid.Type == cidRef.Type || cidRef.Type == "")
}
