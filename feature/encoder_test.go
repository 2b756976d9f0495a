package feature

import (
	"reflect"
	"testing"

	"github.com/rushteam/videorec/core"
)

func TestNewEncoder(t *testing.T) {
	enc := NewEncoder([]int64{7, 3, 7, 9}, []int64{100, 50, 100, 200})

	userTests := []struct {
		raw    int64
		want   int
		wantOK bool
	}{
		{7, 0, true},
		{3, 1, true},
		{9, 2, true},
		{4, 0, false},
	}
	for _, tt := range userTests {
		got, ok := enc.EncodeUser(tt.raw)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("EncodeUser(%d) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}

	// 物品空间独立编码
	if got, _ := enc.EncodeItem(100); got != 0 {
		t.Errorf("EncodeItem(100) = %d, want 0", got)
	}
	if got, _ := enc.EncodeItem(200); got != 2 {
		t.Errorf("EncodeItem(200) = %d, want 2", got)
	}
	if _, ok := enc.EncodeItem(7); ok {
		t.Errorf("EncodeItem(7) should be unmapped: user ids do not leak into item space")
	}

	if raw, ok := enc.DecodeItem(1); !ok || raw != 50 {
		t.Errorf("DecodeItem(1) = (%d, %v), want (50, true)", raw, ok)
	}
	if _, ok := enc.DecodeItem(3); ok {
		t.Errorf("DecodeItem(3) should fail")
	}
	if enc.NumUsers() != 3 || enc.NumItems() != 3 {
		t.Errorf("NumUsers/NumItems = %d/%d, want 3/3", enc.NumUsers(), enc.NumItems())
	}
}

func TestEncoderFromInteractions_Deterministic(t *testing.T) {
	log := []core.Interaction{
		{UserID: 5, ItemID: 30, Label: 0},
		{UserID: 2, ItemID: 10, Label: 1},
		{UserID: 5, ItemID: 20, Label: 1},
	}
	a := EncoderFromInteractions(log)
	b := EncoderFromInteractions(log)

	if !reflect.DeepEqual(a.Users(), []int64{5, 2}) {
		t.Errorf("Users() = %v, want [5 2]", a.Users())
	}
	if !reflect.DeepEqual(a.Items(), []int64{30, 10, 20}) {
		t.Errorf("Items() = %v, want [30 10 20] (label 0 rows included)", a.Items())
	}
	if !reflect.DeepEqual(a.Users(), b.Users()) || !reflect.DeepEqual(a.Items(), b.Items()) {
		t.Errorf("two builds differ")
	}
}

func TestAssemble(t *testing.T) {
	enc := NewEncoder([]int64{1}, []int64{10, 20, 30})

	t.Run("drops unmapped items and keeps order", func(t *testing.T) {
		items := []*core.Item{core.NewItem(30), core.NewItem(99), core.NewItem(10), nil}
		got := Assemble(enc, 1, items)

		wantRows := []core.FeatureRow{{User: 0, Item: 2}, {User: 0, Item: 0}}
		if !reflect.DeepEqual(got.Rows, wantRows) {
			t.Errorf("Rows = %v, want %v", got.Rows, wantRows)
		}
		if len(got.Items) != 2 || got.Items[0].ID != 30 || got.Items[1].ID != 10 {
			t.Errorf("Items = %v", got.Items)
		}
		if got.Unmapped != 1 {
			t.Errorf("Unmapped = %d, want 1", got.Unmapped)
		}
		if got.Items[0].Features[FeatureItemEnc] != 2 {
			t.Errorf("item_id_enc = %v, want 2", got.Items[0].Features[FeatureItemEnc])
		}
	})

	t.Run("all unmapped", func(t *testing.T) {
		got := Assemble(enc, 1, []*core.Item{core.NewItem(98), core.NewItem(99)})
		if len(got.Rows) != 0 || got.Unmapped != 2 {
			t.Errorf("Assemble() = %+v, want no rows, 2 unmapped", got)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		got := Assemble(enc, 42, []*core.Item{core.NewItem(10)})
		if len(got.Rows) != 0 || got.Unmapped != 1 {
			t.Errorf("Assemble() = %+v, want no rows, 1 unmapped", got)
		}
	})
}
