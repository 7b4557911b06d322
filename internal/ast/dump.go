package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree as an indented outline, one node per line.
// Used by the driver's --ast flag.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Program:
		fmt.Fprintf(sb, "%sProgram\n", indent)
		for _, d := range n.Decls {
			dump(sb, d, depth+1)
		}
	case *ClassDecl:
		fmt.Fprintf(sb, "%sClass %s", indent, n.Name)
		if n.Extends != "" {
			fmt.Fprintf(sb, " extends %s", n.Extends)
		}
		if len(n.Implements) > 0 {
			fmt.Fprintf(sb, " implements %s", strings.Join(n.Implements, ", "))
		}
		sb.WriteByte('\n')
		for _, f := range n.Fields {
			dump(sb, f, depth+1)
		}
		for _, m := range n.Methods {
			dump(sb, m, depth+1)
		}
	case *InterfaceDecl:
		fmt.Fprintf(sb, "%sInterface %s\n", indent, n.Name)
		for _, m := range n.Methods {
			fmt.Fprintf(sb, "%s  method %s%s -> %s\n", indent, m.Name, paramList(m.Params), m.Result)
		}
	case *FieldDecl:
		kw := "var"
		if n.Const {
			kw = "const"
		}
		fmt.Fprintf(sb, "%s%s %s %s: %s", indent, n.Visibility, kw, n.Name, n.Type)
		if n.Annotation != nil {
			fmt.Fprintf(sb, " %s", annotationText(n.Annotation))
		}
		sb.WriteByte('\n')
		if n.Init != nil {
			dump(sb, n.Init, depth+1)
		}
	case *MethodDecl:
		kw := "method"
		if n.Static {
			kw = "function"
		}
		fmt.Fprintf(sb, "%s%s %s %s%s -> %s\n", indent, n.Visibility, kw, n.Name, paramList(n.Params), n.Result)
		if n.Body != nil {
			dump(sb, n.Body, depth+1)
		}
	case *FunctionDecl:
		fmt.Fprintf(sb, "%sFunction %s%s -> %s\n", indent, n.Name, paramList(n.Params), n.Result)
		dump(sb, n.Body, depth+1)
	case *BlockStmt:
		fmt.Fprintf(sb, "%sBlock\n", indent)
		for _, s := range n.Stmts {
			dump(sb, s, depth+1)
		}
	case *VarDeclStmt:
		fmt.Fprintf(sb, "%sVarDecl %s: %s\n", indent, n.Name, n.Type)
		if n.Init != nil {
			dump(sb, n.Init, depth+1)
		}
	case *ExprStmt:
		fmt.Fprintf(sb, "%sExprStmt\n", indent)
		dump(sb, n.X, depth+1)
	case *ReturnStmt:
		fmt.Fprintf(sb, "%sReturn\n", indent)
		if n.Value != nil {
			dump(sb, n.Value, depth+1)
		}
	case *IfStmt:
		fmt.Fprintf(sb, "%sIf\n", indent)
		dump(sb, n.Cond, depth+1)
		dump(sb, n.Then, depth+1)
		if n.Else != nil {
			dump(sb, n.Else, depth+1)
		}
	case *WhileStmt:
		fmt.Fprintf(sb, "%sWhile\n", indent)
		dump(sb, n.Cond, depth+1)
		dump(sb, n.Body, depth+1)
	case *ForStmt:
		fmt.Fprintf(sb, "%sFor\n", indent)
		if n.Init != nil {
			dump(sb, n.Init, depth+1)
		}
		if n.Cond != nil {
			dump(sb, n.Cond, depth+1)
		}
		if n.Post != nil {
			dump(sb, n.Post, depth+1)
		}
		dump(sb, n.Body, depth+1)
	case *BreakStmt:
		fmt.Fprintf(sb, "%sBreak\n", indent)
	case *ContinueStmt:
		fmt.Fprintf(sb, "%sContinue\n", indent)
	case *PrintStmt:
		name := "print"
		if n.Newline {
			name = "println"
		}
		fmt.Fprintf(sb, "%s%s\n", indent, name)
		for _, a := range n.Args {
			dump(sb, a, depth+1)
		}
	case *Ident:
		fmt.Fprintf(sb, "%sIdent %s\n", indent, n.Name)
	case *IntLit:
		fmt.Fprintf(sb, "%sInt %d\n", indent, n.Value)
	case *FloatLit:
		fmt.Fprintf(sb, "%sFloat %s\n", indent, n.Text)
	case *StringLit:
		fmt.Fprintf(sb, "%sString %q\n", indent, n.Value)
	case *DStringLit:
		fmt.Fprintf(sb, "%sDString %q refs=%s\n", indent, n.Template, strings.Join(n.Refs, ","))
	case *BoolLit:
		fmt.Fprintf(sb, "%sBool %v\n", indent, n.Value)
	case *NullLit:
		fmt.Fprintf(sb, "%sNull\n", indent)
	case *BinaryExpr:
		fmt.Fprintf(sb, "%sBinary %s\n", indent, n.Op)
		dump(sb, n.X, depth+1)
		dump(sb, n.Y, depth+1)
	case *UnaryExpr:
		kind := "prefix"
		if n.Postfix {
			kind = "postfix"
		}
		fmt.Fprintf(sb, "%sUnary %s %s\n", indent, kind, n.Op)
		dump(sb, n.X, depth+1)
	case *AssignExpr:
		fmt.Fprintf(sb, "%sAssign\n", indent)
		dump(sb, n.Target, depth+1)
		dump(sb, n.Value, depth+1)
	case *MemberExpr:
		fmt.Fprintf(sb, "%sMember .%s\n", indent, n.Member)
		dump(sb, n.X, depth+1)
	case *CallExpr:
		fmt.Fprintf(sb, "%sCall\n", indent)
		dump(sb, n.Callee, depth+1)
		for _, a := range n.Args {
			dump(sb, a, depth+1)
		}
	case *NewExpr:
		fmt.Fprintf(sb, "%sNew %s\n", indent, n.Class)
		for _, a := range n.Args {
			dump(sb, a, depth+1)
		}
	default:
		fmt.Fprintf(sb, "%s%T\n", indent, n)
	}
}

func paramList(params []*Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func annotationText(a *Annotation) string {
	var flags []string
	if a.ReadOnly {
		flags = append(flags, "read_only")
	}
	if a.WriteOnly {
		flags = append(flags, "write_only")
	}
	if a.Derived {
		flags = append(flags, "derived")
	}
	if a.Serializable {
		flags = append(flags, "serializable")
	}
	return "@attribute(" + strings.Join(flags, ", ") + ")"
}
