// Package semantic builds the per-function control-flow and data-flow
// graphs (component F) from a parsed syntax tree, and seals the parse
// epoch (component E) that a CPG build is grounded on.
package semantic

import "vcrkernel/parse"

// role classifies a raw tree-sitter node type by its structural meaning,
// independent of which of the five supported grammars produced it. The
// CFG/DFG builder walks the syntax tree once per function using this
// classification instead of five parallel, language-specific builders.
type role uint8

const (
	roleOther role = iota
	roleFunction
	roleParameterList
	roleParameter
	roleBlock
	roleIf
	roleWhile
	roleFor
	roleReturn
	roleCall
	roleAssignment
	roleVariableDecl
	roleIdentifier
	roleLiteral
	roleBinary
	roleElse
)

// languageSpec maps one grammar's node type names onto role. Each entry
// is grounded in the concrete grammar node names each tree-sitter
// grammar actually produces: the JavaScript and Python tables match the
// same vocabulary a plain symbol walker would; the Go, Rust, and
// TypeScript tables were built the same way, against each grammar's own
// node-type vocabulary.
type languageSpec map[string]role

var specsByLang = map[parse.Language]languageSpec{
	parse.LangJavaScript: {
		"function_declaration": roleFunction,
		"function":             roleFunction,
		"arrow_function":       roleFunction,
		"method_definition":    roleFunction,
		"formal_parameters":    roleParameterList,
		"identifier":           roleIdentifier,
		"statement_block":      roleBlock,
		"if_statement":         roleIf,
		"else_clause":          roleElse,
		"while_statement":      roleWhile,
		"for_statement":        roleFor,
		"for_in_statement":     roleFor,
		"return_statement":     roleReturn,
		"call_expression":      roleCall,
		"assignment_expression": roleAssignment,
		"variable_declarator":  roleVariableDecl,
		"number":               roleLiteral,
		"string":               roleLiteral,
		"true":                 roleLiteral,
		"false":                roleLiteral,
		"null":                 roleLiteral,
		"binary_expression":    roleBinary,
	},
	parse.LangTypeScript: {
		"function_declaration": roleFunction,
		"function":             roleFunction,
		"arrow_function":       roleFunction,
		"method_definition":    roleFunction,
		"formal_parameters":    roleParameterList,
		"required_parameter":   roleParameter,
		"identifier":           roleIdentifier,
		"statement_block":      roleBlock,
		"if_statement":         roleIf,
		"else_clause":          roleElse,
		"while_statement":      roleWhile,
		"for_statement":        roleFor,
		"for_in_statement":     roleFor,
		"return_statement":     roleReturn,
		"call_expression":      roleCall,
		"assignment_expression": roleAssignment,
		"variable_declarator":  roleVariableDecl,
		"number":               roleLiteral,
		"string":               roleLiteral,
		"true":                 roleLiteral,
		"false":                roleLiteral,
		"null":                 roleLiteral,
		"binary_expression":    roleBinary,
	},
	parse.LangPython: {
		"function_definition": roleFunction,
		"lambda":              roleFunction,
		"parameters":          roleParameterList,
		"identifier":          roleIdentifier,
		"block":               roleBlock,
		"if_statement":        roleIf,
		"else_clause":         roleElse,
		"while_statement":     roleWhile,
		"for_statement":       roleFor,
		"return_statement":    roleReturn,
		"call":                roleCall,
		"assignment":          roleAssignment,
		"integer":             roleLiteral,
		"float":               roleLiteral,
		"string":              roleLiteral,
		"true":                roleLiteral,
		"false":                roleLiteral,
		"none":                roleLiteral,
		"binary_operator":     roleBinary,
	},
	parse.LangGo: {
		"function_declaration": roleFunction,
		"method_declaration":   roleFunction,
		"func_literal":         roleFunction,
		"parameter_list":       roleParameterList,
		"parameter_declaration": roleParameter,
		"identifier":           roleIdentifier,
		"block":                roleBlock,
		"if_statement":         roleIf,
		"for_statement":        roleWhile,
		"return_statement":     roleReturn,
		"call_expression":      roleCall,
		"assignment_statement": roleAssignment,
		"short_var_declaration": roleVariableDecl,
		"int_literal":          roleLiteral,
		"float_literal":        roleLiteral,
		"string_literal":       roleLiteral,
		"true":                 roleLiteral,
		"false":                roleLiteral,
		"nil":                  roleLiteral,
		"binary_expression":    roleBinary,
	},
	parse.LangRust: {
		"function_item":      roleFunction,
		"closure_expression":  roleFunction,
		"parameters":          roleParameterList,
		"parameter":           roleParameter,
		"identifier":          roleIdentifier,
		"block":                roleBlock,
		"if_expression":       roleIf,
		"else_clause":         roleElse,
		"while_expression":    roleWhile,
		"for_expression":      roleFor,
		"loop_expression":     roleWhile,
		"return_expression":   roleReturn,
		"call_expression":     roleCall,
		"assignment_expression": roleAssignment,
		"let_declaration":     roleVariableDecl,
		"integer_literal":     roleLiteral,
		"float_literal":       roleLiteral,
		"string_literal":      roleLiteral,
		"boolean_literal":     roleLiteral,
		"binary_expression":   roleBinary,
	},
}

func roleOf(lang parse.Language, nodeType string) role {
	spec, ok := specsByLang[lang]
	if !ok {
		return roleOther
	}
	if r, ok := spec[nodeType]; ok {
		return r
	}
	return roleOther
}
