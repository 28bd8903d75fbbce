/*
 * Copyright 2024 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package extract reads Go packages and produces the function descriptors
// the pointcut engine matches against. It also carries the smaller
// expression matcher used at tooling call sites, see match.go.
//
// Module paths are rendered in "::" form: the last segment of the module
// path plus the package directories, so "github.com/acme/shop/internal/db"
// becomes "shop::internal::db". Methods get the receiver type as an extra
// segment, mirroring how an impl block nests functions under a type.
package extract

import (
	"fmt"
	"go/ast"
	gotypes "go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/aspectgo/aspectgo/api/types"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedModule

// Extractor 扫描Go包并提取函数元数据
type Extractor struct {
	//扫描根目录，空则当前目录
	Dir string
	//包匹配模式，默认 ./...
	Patterns []string
	//是否包含测试文件
	Tests bool
}

// Extract loads the configured packages and returns one descriptor per
// function declaration, sorted by qualified name. The first package load
// error aborts the scan.
func (e *Extractor) Extract() ([]types.FunctionDescriptor, error) {
	cfg := &packages.Config{
		Mode:  loadMode,
		Dir:   e.Dir,
		Tests: e.Tests,
	}
	patterns := e.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, err
	}

	var descriptors []types.FunctionDescriptor
	//Tests=true 时同一个包会出现多次，按位置去重
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("load package %s: %s", pkg.PkgPath, pkg.Errors[0].Msg)
		}
		modulePath := modulePathOf(pkg)
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Name == nil || fn.Name.Name == "_" {
					continue
				}
				d := e.descriptor(pkg, modulePath, fn)
				key := d.QualifiedName + "@" + d.Location.String()
				if seen[key] {
					continue
				}
				seen[key] = true
				descriptors = append(descriptors, d)
			}
		}
	}

	sort.Slice(descriptors, func(i, j int) bool {
		if descriptors[i].QualifiedName != descriptors[j].QualifiedName {
			return descriptors[i].QualifiedName < descriptors[j].QualifiedName
		}
		return descriptors[i].Location.Line < descriptors[j].Location.Line
	})
	return descriptors, nil
}

func (e *Extractor) descriptor(pkg *packages.Package, modulePath string, fn *ast.FuncDecl) types.FunctionDescriptor {
	if recv := receiverTypeName(fn); recv != "" {
		modulePath = modulePath + "::" + recv
	}
	name := fn.Name.Name
	pos := pkg.Fset.Position(fn.Pos())
	return types.FunctionDescriptor{
		QualifiedName: modulePath + "::" + name,
		SimpleName:    name,
		ModulePath:    modulePath,
		Visibility:    visibilityOf(pkg.PkgPath, name),
		IsAsync:       returnsChannel(fn),
		Generics:      genericsOf(fn),
		ReturnType:    returnTypeOf(fn),
		Location: types.Location{
			File:   pos.Filename,
			Line:   pos.Line,
			Column: pos.Column,
		},
	}
}

// modulePathOf renders the "::" module path: module tail plus package
// directories. Packages outside a module fall back to the import path.
func modulePathOf(pkg *packages.Package) string {
	if pkg.Module != nil && pkg.Module.Path != "" {
		tail := pkg.Module.Path
		if i := strings.LastIndex(tail, "/"); i >= 0 {
			tail = tail[i+1:]
		}
		rel := strings.Trim(strings.TrimPrefix(pkg.PkgPath, pkg.Module.Path), "/")
		if rel == "" {
			return tail
		}
		return tail + "::" + strings.ReplaceAll(rel, "/", "::")
	}
	return strings.ReplaceAll(pkg.PkgPath, "/", "::")
}

// visibilityOf maps Go exportedness onto the visibility tags the matcher
// understands: unexported functions are private, exported ones are pub,
// and exported functions sealed behind internal/ are pub(crate).
func visibilityOf(pkgPath, name string) string {
	if !ast.IsExported(name) {
		return ""
	}
	if underInternal(pkgPath) {
		return "pub(crate)"
	}
	return "pub"
}

func underInternal(pkgPath string) bool {
	return pkgPath == "internal" ||
		strings.HasPrefix(pkgPath, "internal/") ||
		strings.HasSuffix(pkgPath, "/internal") ||
		strings.Contains(pkgPath, "/internal/")
}

// receiverTypeName unwraps pointer and type-parameter wrappers around the
// receiver type, so (s *Store[T]) yields "Store".
func receiverTypeName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	t := fn.Recv.List[0].Type
	for {
		switch x := t.(type) {
		case *ast.StarExpr:
			t = x.X
		case *ast.IndexExpr:
			t = x.X
		case *ast.IndexListExpr:
			t = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}

// returnsChannel flags functions returning a channel; those run their real
// work after the call returns, the closest Go analogue to an async fn.
func returnsChannel(fn *ast.FuncDecl) bool {
	if fn.Type.Results == nil {
		return false
	}
	for _, field := range fn.Type.Results.List {
		if _, ok := field.Type.(*ast.ChanType); ok {
			return true
		}
	}
	return false
}

func returnTypeOf(fn *ast.FuncDecl) string {
	results := fn.Type.Results
	if results == nil || len(results.List) == 0 {
		return ""
	}
	var parts []string
	for _, field := range results.List {
		rendered := gotypes.ExprString(field.Type)
		count := len(field.Names)
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			parts = append(parts, rendered)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func genericsOf(fn *ast.FuncDecl) []types.GenericParam {
	tp := fn.Type.TypeParams
	if tp == nil {
		return nil
	}
	var params []types.GenericParam
	for _, field := range tp.List {
		bound := gotypes.ExprString(field.Type)
		for _, name := range field.Names {
			params = append(params, types.GenericParam{
				Name:   name.Name,
				Bounds: []string{bound},
			})
		}
	}
	return params
}
