package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/condsql/internal/schema"
)

// Trees are serialized through a neutral document form: every node becomes
// a map with a "type" key holding its tag. Literal values are stored as
// strings next to their kind so both codecs preserve int/float/time.

type doc = map[string]any

// MarshalJSON serializes a node tree to JSON.
func MarshalJSON(n Node) ([]byte, error) {
	d, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// UnmarshalJSON reads a node tree written by MarshalJSON.
func UnmarshalJSON(data []byte) (Node, error) {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return decodeNode(d)
}

// MarshalMsgpack serializes a node tree to msgpack.
func MarshalMsgpack(n Node) ([]byte, error) {
	d, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(d)
}

// UnmarshalMsgpack reads a node tree written by MarshalMsgpack.
func UnmarshalMsgpack(data []byte) (Node, error) {
	var d doc
	if err := msgpack.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode msgpack: %w", err)
	}
	return decodeNode(d)
}

// UnmarshalCondition reads a JSON condition tree.
func UnmarshalCondition(data []byte) (Condition, error) {
	n, err := UnmarshalJSON(data)
	if err != nil {
		return nil, err
	}
	c, ok := n.(Condition)
	if !ok {
		return nil, fmt.Errorf("expected condition, got %q", n.Tag())
	}
	return c, nil
}

func encodeNode(n Node) (doc, error) {
	if n == nil {
		return nil, nil
	}
	d := doc{"type": n.Tag()}
	switch x := n.(type) {
	case *ColumnRef:
		d["column"] = x.Column
		if x.Source != nil {
			src, err := encodeSource(x.Source)
			if err != nil {
				return nil, err
			}
			d["source"] = src
		}
	case *Literal:
		kind, value, err := encodeLiteral(x.Value)
		if err != nil {
			return nil, err
		}
		d["kind"] = kind
		d["value"] = value
	case *Placeholder, *Count, *False:
	case *RawIdent:
		d["name"] = x.Name
	case *RawValue:
		d["sql"] = x.SQL
	case *StringLit:
		d["value"] = x.Value
	case *FuncCall:
		d["name"] = x.Name
		args, err := encodeList(exprNodes(x.Args))
		if err != nil {
			return nil, err
		}
		d["args"] = args
	case *SubSelect:
		return encodeChild(d, "select", x.Select)
	case *IsNull:
		return encodeChild(d, "expr", x.Expr)
	case *IsNotNull:
		return encodeChild(d, "expr", x.Expr)
	case *Not:
		return encodeChild(d, "cond", x.Cond)
	case *Binary:
		d["op"] = string(x.Op)
		if _, err := encodeChild(d, "left", x.Left); err != nil {
			return nil, err
		}
		return encodeChild(d, "right", x.Right)
	case *Between:
		d["not"] = x.Not
		for key, e := range map[string]Expression{"expr": x.Expr, "lower": x.Lower, "upper": x.Upper} {
			if _, err := encodeChild(d, key, e); err != nil {
				return nil, err
			}
		}
	case *StringTest:
		d["kind"] = string(x.Kind)
		d["value"] = x.Value
		return encodeChild(d, "expr", x.Expr)
	case *And:
		list, err := encodeList(condNodes(x.Conditions))
		if err != nil {
			return nil, err
		}
		d["conditions"] = list
	case *Or:
		list, err := encodeList(condNodes(x.Conditions))
		if err != nil {
			return nil, err
		}
		d["conditions"] = list
	case *Exists:
		d["not"] = x.Not
		return encodeChild(d, "select", x.Select)
	case *RawCondition:
		d["sql"] = x.SQL
	case *Select:
		if x == nil {
			return nil, nil
		}
		return encodeSelect(d, x)
	default:
		return nil, fmt.Errorf("unsupported node type: %T", n)
	}
	return d, nil
}

func encodeChild(d doc, key string, n Node) (doc, error) {
	child, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	if child != nil {
		d[key] = child
	}
	return d, nil
}

func encodeList(nodes []Node) ([]any, error) {
	list := make([]any, 0, len(nodes))
	for _, n := range nodes {
		d, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, nil
}

func exprNodes(exprs []Expression) []Node {
	nodes := make([]Node, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}

func encodeLiteral(v any) (kind, value string, err error) {
	switch x := normalizeValue(v).(type) {
	case nil:
		return "null", "", nil
	case bool:
		return "bool", strconv.FormatBool(x), nil
	case int64:
		return "int", strconv.FormatInt(x, 10), nil
	case float64:
		return "float", strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return "string", x, nil
	case time.Time:
		return "time", x.Format(time.RFC3339Nano), nil
	}
	return "", "", fmt.Errorf("unsupported literal type: %T", v)
}

func encodeSource(s *Source) (doc, error) {
	d := doc{}
	if s.Alias != "" {
		d["alias"] = s.Alias
	}
	if s.Table != nil {
		d["table"] = s.Table.Name
		if s.Table.Schema != "" {
			d["schema"] = s.Table.Schema
		}
	}
	if s.LinkedServer != "" {
		d["linked"] = s.LinkedServer
	}
	if s.SubQuery != "" {
		d["subquery"] = s.SubQuery
	}
	if s.SubSelect != nil {
		sel, err := encodeNode(s.SubSelect)
		if err != nil {
			return nil, err
		}
		d["select"] = sel
	}
	return d, nil
}

func encodeSelect(d doc, s *Select) (doc, error) {
	d["distinct"] = s.Distinct
	d["all"] = s.SelectAll
	d["top"] = strconv.Itoa(s.TopRecords)

	cols := make([]any, 0, len(s.Columns))
	for _, c := range s.Columns {
		e, err := encodeNode(c.Expr)
		if err != nil {
			return nil, err
		}
		cols = append(cols, doc{"expr": e, "alias": c.Alias})
	}
	d["columns"] = cols

	from := make([]any, 0, len(s.From))
	for _, f := range s.From {
		src, err := encodeSource(f.Source)
		if err != nil {
			return nil, err
		}
		rels := make([]any, 0, len(f.Relations))
		for _, r := range f.Relations {
			ref, err := encodeSource(r.Reference)
			if err != nil {
				return nil, err
			}
			conds, err := encodeList(condNodes(r.Conditions))
			if err != nil {
				return nil, err
			}
			rels = append(rels, doc{"join": string(r.JoinType), "source": ref, "conditions": conds})
		}
		from = append(from, doc{"source": src, "relations": rels})
	}
	d["from"] = from

	if s.Where != nil {
		if _, err := encodeChild(d, "where", s.Where); err != nil {
			return nil, err
		}
	}
	if s.Having != nil {
		if _, err := encodeChild(d, "having", s.Having); err != nil {
			return nil, err
		}
	}
	groups, err := encodeList(exprNodes(s.GroupBy))
	if err != nil {
		return nil, err
	}
	d["groupBy"] = groups
	order := make([]any, 0, len(s.OrderBy))
	for _, o := range s.OrderBy {
		e, err := encodeNode(o.Expr)
		if err != nil {
			return nil, err
		}
		order = append(order, doc{"expr": e, "desc": o.Desc})
	}
	d["orderBy"] = order
	return d, nil
}

func decodeNode(d doc) (Node, error) {
	if d == nil {
		return nil, fmt.Errorf("missing node")
	}
	tag := str(d, "type")
	switch tag {
	case TagColumn:
		ref := &ColumnRef{Column: str(d, "column")}
		if sd, ok := asDoc(d["source"]); ok {
			src, err := decodeSource(sd)
			if err != nil {
				return nil, err
			}
			ref.Source = src
		}
		return ref, nil
	case TagLiteral:
		v, err := decodeLiteral(str(d, "kind"), str(d, "value"))
		if err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil
	case TagPlaceholder:
		return &Placeholder{}, nil
	case TagIdent:
		return &RawIdent{Name: str(d, "name")}, nil
	case TagValue:
		return &RawValue{SQL: str(d, "sql")}, nil
	case TagString:
		return &StringLit{Value: str(d, "value")}, nil
	case TagCount:
		return &Count{}, nil
	case TagFunc:
		args, err := decodeExprList(d["args"])
		if err != nil {
			return nil, err
		}
		return &FuncCall{Name: str(d, "name"), Args: args}, nil
	case TagSubSelect:
		sel, err := decodeSelectField(d, "select")
		if err != nil {
			return nil, err
		}
		return &SubSelect{Select: sel}, nil
	case TagIsNull:
		e, err := decodeExprField(d, "expr")
		return &IsNull{Expr: e}, err
	case TagIsNotNull:
		e, err := decodeExprField(d, "expr")
		return &IsNotNull{Expr: e}, err
	case TagNot:
		c, err := decodeCondField(d, "cond")
		return &Not{Cond: c}, err
	case TagBinary:
		op := BinaryOp(str(d, "op"))
		if !op.Valid() {
			return nil, fmt.Errorf("unknown operator %q", op)
		}
		l, err := decodeExprField(d, "left")
		if err != nil {
			return nil, err
		}
		r, err := decodeExprField(d, "right")
		return &Binary{Op: op, Left: l, Right: r}, err
	case TagBetween:
		b := &Between{Not: boolean(d, "not")}
		var err error
		if b.Expr, err = decodeExprField(d, "expr"); err != nil {
			return nil, err
		}
		if b.Lower, err = decodeExprField(d, "lower"); err != nil {
			return nil, err
		}
		b.Upper, err = decodeExprField(d, "upper")
		return b, err
	case TagStringTest:
		e, err := decodeExprField(d, "expr")
		return &StringTest{Kind: StringTestKind(str(d, "kind")), Expr: e, Value: str(d, "value")}, err
	case TagAnd:
		conds, err := decodeCondList(d["conditions"])
		return &And{Conditions: conds}, err
	case TagOr:
		conds, err := decodeCondList(d["conditions"])
		return &Or{Conditions: conds}, err
	case TagFalse:
		return &False{}, nil
	case TagExists:
		sel, err := decodeSelectField(d, "select")
		return &Exists{Select: sel, Not: boolean(d, "not")}, err
	case TagRaw:
		return &RawCondition{SQL: str(d, "sql")}, nil
	case TagSelect:
		return decodeSelect(d)
	}
	return nil, fmt.Errorf("unknown node tag %q", tag)
}

func decodeLiteral(kind, value string) (any, error) {
	switch kind {
	case "null":
		return nil, nil
	case "bool":
		return strconv.ParseBool(value)
	case "int":
		return strconv.ParseInt(value, 10, 64)
	case "float":
		return strconv.ParseFloat(value, 64)
	case "string":
		return value, nil
	case "time":
		return time.Parse(time.RFC3339Nano, value)
	}
	return nil, fmt.Errorf("unknown literal kind %q", kind)
}

func decodeExprField(d doc, key string) (Expression, error) {
	cd, ok := asDoc(d[key])
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", str(d, "type"), key)
	}
	return decodeExpr(cd)
}

func decodeExpr(d doc) (Expression, error) {
	n, err := decodeNode(d)
	if err != nil {
		return nil, err
	}
	e, ok := n.(Expression)
	if !ok {
		return nil, fmt.Errorf("expected expression, got %q", n.Tag())
	}
	return e, nil
}

func decodeCondField(d doc, key string) (Condition, error) {
	cd, ok := asDoc(d[key])
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", str(d, "type"), key)
	}
	return decodeCond(cd)
}

func decodeCond(d doc) (Condition, error) {
	n, err := decodeNode(d)
	if err != nil {
		return nil, err
	}
	c, ok := n.(Condition)
	if !ok {
		return nil, fmt.Errorf("expected condition, got %q", n.Tag())
	}
	return c, nil
}

func decodeExprList(v any) ([]Expression, error) {
	items, _ := v.([]any)
	res := make([]Expression, 0, len(items))
	for _, item := range items {
		d, ok := asDoc(item)
		if !ok {
			return nil, fmt.Errorf("expected node document, got %T", item)
		}
		e, err := decodeExpr(d)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

func decodeCondList(v any) ([]Condition, error) {
	items, _ := v.([]any)
	res := make([]Condition, 0, len(items))
	for _, item := range items {
		d, ok := asDoc(item)
		if !ok {
			return nil, fmt.Errorf("expected node document, got %T", item)
		}
		c, err := decodeCond(d)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func decodeSelectField(d doc, key string) (*Select, error) {
	sd, ok := asDoc(d[key])
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", str(d, "type"), key)
	}
	return decodeSelect(sd)
}

func decodeSource(d doc) (*Source, error) {
	s := &Source{
		Alias:        str(d, "alias"),
		LinkedServer: str(d, "linked"),
		SubQuery:     str(d, "subquery"),
	}
	if name := str(d, "table"); name != "" {
		s.Table = &schema.NameWithSchema{Schema: str(d, "schema"), Name: name}
	}
	if _, ok := d["select"]; ok {
		sel, err := decodeSelectField(d, "select")
		if err != nil {
			return nil, err
		}
		s.SubSelect = sel
	}
	return s, nil
}

func decodeSelect(d doc) (*Select, error) {
	top, _ := strconv.Atoi(str(d, "top"))
	s := &Select{
		Distinct:   boolean(d, "distinct"),
		SelectAll:  boolean(d, "all"),
		TopRecords: top,
	}
	cols, _ := d["columns"].([]any)
	for _, item := range cols {
		cd, _ := asDoc(item)
		e, err := decodeExprField(cd, "expr")
		if err != nil {
			return nil, err
		}
		s.Columns = append(s.Columns, ResultField{Expr: e, Alias: str(cd, "alias")})
	}
	from, _ := d["from"].([]any)
	for _, item := range from {
		fd, _ := asDoc(item)
		sd, ok := asDoc(fd["source"])
		if !ok {
			return nil, fmt.Errorf("select: from item without source")
		}
		src, err := decodeSource(sd)
		if err != nil {
			return nil, err
		}
		fi := NewFromItem(src)
		rels, _ := fd["relations"].([]any)
		for _, r := range rels {
			rd, _ := asDoc(r)
			refDoc, ok := asDoc(rd["source"])
			if !ok {
				return nil, fmt.Errorf("select: relation without source")
			}
			ref, err := decodeSource(refDoc)
			if err != nil {
				return nil, err
			}
			conds, err := decodeCondList(rd["conditions"])
			if err != nil {
				return nil, err
			}
			fi.Relations = append(fi.Relations, &Relation{JoinType: JoinType(str(rd, "join")), Reference: ref, Conditions: conds})
		}
		s.From = append(s.From, fi)
	}
	for _, key := range []string{"where", "having"} {
		if _, ok := d[key]; !ok {
			continue
		}
		c, err := decodeCondField(d, key)
		if err != nil {
			return nil, err
		}
		and, ok := c.(*And)
		if !ok {
			and = AndOf(c)
		}
		if key == "where" {
			s.Where = and
		} else {
			s.Having = and
		}
	}
	groups, err := decodeExprList(d["groupBy"])
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		s.GroupBy = groups
	}
	order, _ := d["orderBy"].([]any)
	for _, item := range order {
		od, _ := asDoc(item)
		e, err := decodeExprField(od, "expr")
		if err != nil {
			return nil, err
		}
		s.OrderBy = append(s.OrderBy, SortItem{Expr: e, Desc: boolean(od, "desc")})
	}
	return s, nil
}

func asDoc(v any) (doc, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[any]any:
		d := make(doc, len(x))
		for k, val := range x {
			d[fmt.Sprint(k)] = val
		}
		return d, true
	}
	return nil, false
}

func str(d doc, key string) string {
	s, _ := d[key].(string)
	return s
}

func boolean(d doc, key string) bool {
	b, _ := d[key].(bool)
	return b
}
