package domain

import "testing"

func TestSchemaInversesArePaired(t *testing.T) {
	for _, s := range Schemas() {
		for _, rel := range s.Relationships {
			if rel.Inverse == "" || rel.Polymorphic {
				continue
			}
			target, ok := SchemaOf(rel.Target)
			if !ok {
				t.Fatalf("%s.%s targets unknown type %q", s.Type, rel.Name, rel.Target)
			}
			inv, ok := target.Relationship(rel.Inverse)
			if !ok {
				t.Errorf("%s.%s: inverse %s.%s not declared", s.Type, rel.Name, rel.Target, rel.Inverse)
				continue
			}
			if inv.Polymorphic {
				continue
			}
			if inv.Target != s.Type || inv.Inverse != rel.Name {
				t.Errorf("%s.%s and %s.%s are not mutual inverses", s.Type, rel.Name, rel.Target, inv.Name)
			}
		}
	}
}

func TestSchemaAsyncFlags(t *testing.T) {
	s, ok := SchemaOf(EntityTypeTezApp)
	if !ok {
		t.Fatal("missing tezApp schema")
	}
	for name, async := range map[string]bool{"appDetail": true, "dags": true, "configs": false} {
		rel, ok := s.Relationship(name)
		if !ok {
			t.Fatalf("missing relationship %s", name)
		}
		if rel.Async != async {
			t.Errorf("%s.Async = %v, want %v", name, rel.Async, async)
		}
		if rel.Eager == rel.Async {
			t.Errorf("%s must be exactly one of async or eager", name)
		}
	}
}

func TestSchemaCoversEveryType(t *testing.T) {
	for _, typ := range EntityTypes() {
		if _, ok := SchemaOf(typ); !ok {
			t.Errorf("no schema for %s", typ)
		}
		e, ok := New(typ)
		if !ok || e.EntityType() != typ {
			t.Errorf("New(%s) = %v", typ, e)
		}
	}
	v, _ := SchemaOf(EntityTypeVertex)
	if a, ok := v.Attribute("operations"); !ok || a.Kind != KindStringList {
		t.Errorf("operations attribute = %+v", a)
	}
}
