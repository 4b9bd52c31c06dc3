// Package assert provides fluent assertions on DynamoDB items.
//
//	assert.Item(t, item).
//		HasString("customer", "C1").
//		HasNumber("total", "42").
//		Lacks("note")
//
//	assert.Items(t, store.Items("orders")).
//		HasCount(2).
//		Contains("customer", "C1")
package assert

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemsAssertion provides fluent assertions for a collection of items.
type ItemsAssertion struct {
	t     testing.TB
	items []map[string]types.AttributeValue
}

// Items creates a new ItemsAssertion for the given DynamoDB items.
func Items(t testing.TB, items []map[string]types.AttributeValue) *ItemsAssertion {
	return &ItemsAssertion{t: t, items: items}
}

// HasCount asserts that the items collection has the expected count.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	a.t.Helper()
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the items collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// Contains asserts that some item has an attribute whose value renders as
// expected. See Describe for the rendering.
func (a *ItemsAssertion) Contains(attributeName, expected string) *ItemsAssertion {
	a.t.Helper()
	for _, item := range a.items {
		if av, ok := item[attributeName]; ok && Describe(av) == expected {
			return a
		}
	}
	a.t.Errorf("no item has %s = %s", attributeName, expected)
	return a
}

// ItemAssertion provides fluent assertions for a single item.
type ItemAssertion struct {
	t    testing.TB
	item map[string]types.AttributeValue
}

// Item creates a new ItemAssertion for the given item.
func Item(t testing.TB, item map[string]types.AttributeValue) *ItemAssertion {
	return &ItemAssertion{t: t, item: item}
}

// HasAttributes asserts that the item holds exactly the named attributes.
func (a *ItemAssertion) HasAttributes(names ...string) *ItemAssertion {
	a.t.Helper()
	got := make([]string, 0, len(a.item))
	for name := range a.item {
		got = append(got, name)
	}
	want := append([]string(nil), names...)
	sort.Strings(got)
	sort.Strings(want)
	if !slices.Equal(got, want) {
		a.t.Errorf("expected attributes %v, got %v", want, got)
	}
	return a
}

// Lacks asserts that the item has no attribute with the given name.
func (a *ItemAssertion) Lacks(name string) *ItemAssertion {
	a.t.Helper()
	if av, ok := a.item[name]; ok {
		a.t.Errorf("expected no attribute %s, got %s", name, Describe(av))
	}
	return a
}

// HasString asserts that the attribute is S with the given value.
func (a *ItemAssertion) HasString(name, expected string) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.get(name).(*types.AttributeValueMemberS); !ok || v.Value != expected {
		a.mismatch(name, "S:"+expected)
	}
	return a
}

// HasNumber asserts that the attribute is N with the given decimal text.
func (a *ItemAssertion) HasNumber(name, expected string) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.get(name).(*types.AttributeValueMemberN); !ok || v.Value != expected {
		a.mismatch(name, "N:"+expected)
	}
	return a
}

// HasBinary asserts that the attribute is B with the given bytes.
func (a *ItemAssertion) HasBinary(name string, expected []byte) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.get(name).(*types.AttributeValueMemberB); !ok || !bytes.Equal(v.Value, expected) {
		a.mismatch(name, fmt.Sprintf("B:%x", expected))
	}
	return a
}

// HasBool asserts that the attribute is BOOL with the given value.
func (a *ItemAssertion) HasBool(name string, expected bool) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.get(name).(*types.AttributeValueMemberBOOL); !ok || v.Value != expected {
		a.mismatch(name, fmt.Sprintf("BOOL:%t", expected))
	}
	return a
}

// HasStringSet asserts that the attribute is SS with exactly the given
// members, in any order.
func (a *ItemAssertion) HasStringSet(name string, expected ...string) *ItemAssertion {
	a.t.Helper()
	v, ok := a.get(name).(*types.AttributeValueMemberSS)
	if !ok || !sameMembers(v.Value, expected) {
		a.mismatch(name, "SS:"+strings.Join(expected, ","))
	}
	return a
}

// HasNumberSet asserts that the attribute is NS with exactly the given
// members, in any order.
func (a *ItemAssertion) HasNumberSet(name string, expected ...string) *ItemAssertion {
	a.t.Helper()
	v, ok := a.get(name).(*types.AttributeValueMemberNS)
	if !ok || !sameMembers(v.Value, expected) {
		a.mismatch(name, "NS:"+strings.Join(expected, ","))
	}
	return a
}

// HasList asserts that the attribute is L with the given number of elements.
func (a *ItemAssertion) HasList(name string, length int) *ItemAssertion {
	a.t.Helper()
	if v, ok := a.get(name).(*types.AttributeValueMemberL); !ok || len(v.Value) != length {
		a.mismatch(name, fmt.Sprintf("L with %d elements", length))
	}
	return a
}

// HasMap asserts that the attribute is M and returns an assertion on it.
func (a *ItemAssertion) HasMap(name string) *ItemAssertion {
	a.t.Helper()
	v, ok := a.get(name).(*types.AttributeValueMemberM)
	if !ok {
		a.mismatch(name, "M")
		return Item(a.t, nil)
	}
	return Item(a.t, v.Value)
}

func (a *ItemAssertion) get(name string) types.AttributeValue {
	return a.item[name]
}

func (a *ItemAssertion) mismatch(name, expected string) {
	a.t.Helper()
	av, ok := a.item[name]
	if !ok {
		a.t.Errorf("expected %s = %s, attribute missing", name, expected)
		return
	}
	a.t.Errorf("expected %s = %s, got %s", name, expected, Describe(av))
}

func sameMembers(got, want []string) bool {
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	return slices.Equal(g, w)
}

// Describe renders an attribute value as TYPE:value, such as S:abc, N:42,
// BOOL:true or NULL. Sets list their members comma separated, lists and
// maps are rendered recursively.
func Describe(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("B:%x", v.Value)
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("BOOL:%t", v.Value)
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return "SS:" + strings.Join(v.Value, ",")
	case *types.AttributeValueMemberNS:
		return "NS:" + strings.Join(v.Value, ",")
	case *types.AttributeValueMemberBS:
		parts := make([]string, len(v.Value))
		for i, b := range v.Value {
			parts[i] = fmt.Sprintf("%x", b)
		}
		return "BS:" + strings.Join(parts, ",")
	case *types.AttributeValueMemberL:
		parts := make([]string, len(v.Value))
		for i, e := range v.Value {
			parts[i] = Describe(e)
		}
		return "L:[" + strings.Join(parts, " ") + "]"
	case *types.AttributeValueMemberM:
		keys := make([]string, 0, len(v.Value))
		for k := range v.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + Describe(v.Value[k])
		}
		return "M:{" + strings.Join(parts, " ") + "}"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", av)
}
