// Package awstest provides an in-memory DynamoDB fake for store tests. It
// understands exactly the expression forms the stores emit: existence and
// equality condition guards, equality / contains scan filters, and SET update
// expressions with list_append and indexed list paths.
package awstest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB is the in-memory fake. Register each table with its key attribute
// before use; unknown tables fail loudly instead of auto-creating.
type DynamoDB struct {
	mu     sync.Mutex
	keys   map[string]string                              // table -> pk attribute
	tables map[string]map[string]map[string]types.AttributeValue // table -> pk -> item
}

// NewDynamoDB creates an empty fake.
func NewDynamoDB() *DynamoDB {
	return &DynamoDB{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

// AddTable registers a table and its primary-key attribute name.
func (d *DynamoDB) AddTable(name, keyAttr string) *DynamoDB {
	d.keys[name] = keyAttr
	d.tables[name] = map[string]map[string]types.AttributeValue{}
	return d
}

// Item returns a stored item (nil if absent), for direct assertions.
func (d *DynamoDB) Item(table, pk string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tables[table][pk]
}

// Len reports the number of items in a table.
func (d *DynamoDB) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

// Seed stores an item directly, bypassing condition checks.
func (d *DynamoDB) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk := stringAttr(item[d.keys[table]])
	d.tables[table][pk] = item
}

func (d *DynamoDB) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.putLocked(*params.TableName, params.Item, params.ConditionExpression, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	return &dyn.PutItemOutput{}, nil
}

func (d *DynamoDB) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := *params.TableName
	keyAttr, ok := d.keys[table]
	if !ok {
		return nil, fmt.Errorf("awstest: unknown table %q", table)
	}
	item := d.tables[table][stringAttr(params.Key[keyAttr])]
	return &dyn.GetItemOutput{Item: item}, nil
}

func (d *DynamoDB) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := *params.TableName
	keyAttr, ok := d.keys[table]
	if !ok {
		return nil, fmt.Errorf("awstest: unknown table %q", table)
	}
	delete(d.tables[table], stringAttr(params.Key[keyAttr]))
	return &dyn.DeleteItemOutput{}, nil
}

func (d *DynamoDB) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := *params.TableName
	if _, ok := d.keys[table]; !ok {
		return nil, fmt.Errorf("awstest: unknown table %q", table)
	}
	filter := ""
	if params.FilterExpression != nil {
		filter = *params.FilterExpression
	}
	var items []map[string]types.AttributeValue
	for _, item := range d.tables[table] {
		ok, err := matchFilter(item, filter, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	return &dyn.ScanOutput{Items: items}, nil
}

func (d *DynamoDB) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := *params.TableName
	keyAttr, ok := d.keys[table]
	if !ok {
		return nil, fmt.Errorf("awstest: unknown table %q", table)
	}
	pk := stringAttr(params.Key[keyAttr])
	item := d.tables[table][pk]

	if params.ConditionExpression != nil {
		ok, err := checkCondition(item, *params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if item == nil {
		item = map[string]types.AttributeValue{keyAttr: params.Key[keyAttr]}
		d.tables[table][pk] = item
	}
	if params.UpdateExpression != nil {
		if err := applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (d *DynamoDB) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// First pass: evaluate every condition; on any failure report per-item
	// cancellation reasons the way the real service does.
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		p := it.Put
		if p == nil {
			return nil, fmt.Errorf("awstest: only Put transact items are supported")
		}
		if p.ConditionExpression == nil {
			continue
		}
		table := *p.TableName
		keyAttr, ok := d.keys[table]
		if !ok {
			return nil, fmt.Errorf("awstest: unknown table %q", table)
		}
		existing := d.tables[table][stringAttr(p.Item[keyAttr])]
		ok, err := checkCondition(existing, *p.ConditionExpression, nil, p.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	// Second pass: apply all puts.
	for _, it := range params.TransactItems {
		p := it.Put
		if err := d.putLocked(*p.TableName, p.Item, nil, nil); err != nil {
			return nil, err
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *DynamoDB) putLocked(table string, item map[string]types.AttributeValue, cond *string, values map[string]types.AttributeValue) error {
	keyAttr, ok := d.keys[table]
	if !ok {
		return fmt.Errorf("awstest: unknown table %q", table)
	}
	pk := stringAttr(item[keyAttr])
	if pk == "" {
		return fmt.Errorf("awstest: item for table %q has no %q key", table, keyAttr)
	}
	if cond != nil {
		ok, err := checkCondition(d.tables[table][pk], *cond, nil, values)
		if err != nil {
			return err
		}
		if !ok {
			return &types.ConditionalCheckFailedException{}
		}
	}
	d.tables[table][pk] = item
	return nil
}

// checkCondition evaluates a single-term condition expression against the
// currently stored item (nil when absent).
func checkCondition(existing map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "attribute_not_exists("):
		return existing == nil, nil
	case strings.HasPrefix(expr, "attribute_exists("):
		return existing != nil, nil
	}
	parts := strings.SplitN(expr, " = ", 2)
	if len(parts) != 2 {
		return false, fmt.Errorf("awstest: unsupported condition %q", expr)
	}
	if existing == nil {
		return false, nil
	}
	field := resolveName(parts[0], names)
	return attrEqual(existing[field], values[strings.TrimSpace(parts[1])]), nil
}

// matchFilter evaluates a scan filter: AND-joined terms of either
// "field = :v" or "contains(field, :v)".
func matchFilter(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == "" {
		return true, nil
	}
	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)
		if strings.HasPrefix(term, "contains(") {
			inner := strings.TrimSuffix(strings.TrimPrefix(term, "contains("), ")")
			bits := strings.SplitN(inner, ",", 2)
			field := resolveName(bits[0], names)
			want := values[strings.TrimSpace(bits[1])]
			if !attrContains(item[field], want) {
				return false, nil
			}
			continue
		}
		parts := strings.SplitN(term, " = ", 2)
		if len(parts) != 2 {
			return false, fmt.Errorf("awstest: unsupported filter term %q", term)
		}
		field := resolveName(parts[0], names)
		if !attrEqual(item[field], values[strings.TrimSpace(parts[1])]) {
			return false, nil
		}
	}
	return true, nil
}

// applyUpdate executes a SET update expression in place.
func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	body, ok := strings.CutPrefix(strings.TrimSpace(expr), "SET ")
	if !ok {
		return fmt.Errorf("awstest: unsupported update expression %q", expr)
	}
	for _, clause := range splitClauses(body) {
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return fmt.Errorf("awstest: unsupported update clause %q", clause)
		}
		path := resolveName(parts[0], names)
		val := strings.TrimSpace(parts[1])

		if strings.HasPrefix(val, "list_append(") {
			inner := strings.TrimSuffix(strings.TrimPrefix(val, "list_append("), ")")
			bits := strings.SplitN(inner, ",", 2)
			src := resolveName(bits[0], names)
			appended, ok := values[strings.TrimSpace(bits[1])].(*types.AttributeValueMemberL)
			if !ok {
				return fmt.Errorf("awstest: list_append value in %q is not a list", clause)
			}
			var list []types.AttributeValue
			if existing, ok := item[src].(*types.AttributeValueMemberL); ok {
				list = append(list, existing.Value...)
			}
			list = append(list, appended.Value...)
			item[path] = &types.AttributeValueMemberL{Value: list}
			continue
		}
		if err := setPath(item, path, values[val]); err != nil {
			return err
		}
	}
	return nil
}

// setPath assigns a value at either a plain attribute or a one-level indexed
// list path like "items[2].has_review".
func setPath(item map[string]types.AttributeValue, path string, value types.AttributeValue) error {
	open := strings.Index(path, "[")
	if open == -1 {
		item[path] = value
		return nil
	}
	end := strings.Index(path, "]")
	field := path[:open]
	index, err := strconv.Atoi(path[open+1 : end])
	if err != nil {
		return fmt.Errorf("awstest: bad list index in %q", path)
	}
	sub := strings.TrimPrefix(path[end+1:], ".")

	list, ok := item[field].(*types.AttributeValueMemberL)
	if !ok || index < 0 || index >= len(list.Value) {
		return fmt.Errorf("awstest: list path %q out of range", path)
	}
	elem, ok := list.Value[index].(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("awstest: element at %q is not a map", path)
	}
	elem.Value[sub] = value
	return nil
}

func splitClauses(body string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(body[start:]))
}

func resolveName(token string, names map[string]string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "#") {
		if resolved, ok := names[token]; ok {
			return resolved
		}
		// stores resolve #s/#st to "status"
		return "status"
	}
	return token
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func attrContains(set, want types.AttributeValue) bool {
	wantS, ok := want.(*types.AttributeValueMemberS)
	if !ok {
		return false
	}
	switch v := set.(type) {
	case *types.AttributeValueMemberSS:
		for _, s := range v.Value {
			if s == wantS.Value {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, e := range v.Value {
			if attrEqual(e, want) {
				return true
			}
		}
	}
	return false
}

func stringAttr(a types.AttributeValue) string {
	if s, ok := a.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func strPtr(s string) *string { return &s }
