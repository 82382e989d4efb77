package stats

import "testing"

func TestNewComponentResolvesBaseValues(t *testing.T) {
	component := NewComponent(PlayerBase())

	if got := component.Value(StatMoveSpeed); got != 150 {
		t.Fatalf("expected base move speed 150, got %f", got)
	}
	if got := component.Value(StatAttackDamage); got != 10 {
		t.Fatalf("expected base attack damage 10, got %f", got)
	}
	if got := component.Value(StatAttackSpeed); got != 2 {
		t.Fatalf("expected base attack speed 2, got %f", got)
	}
	if got := component.Value(StatMaxHealth); got != 100 {
		t.Fatalf("expected base max health 100, got %f", got)
	}
}

func TestApplyAdditiveUpgrade(t *testing.T) {
	component := NewComponent(PlayerBase())

	component.Apply(StatChange{Layer: LayerUpgrade, Stat: StatMaxHealth, Add: 20})
	component.Resolve()

	if got := component.Value(StatMaxHealth); got != 120 {
		t.Fatalf("expected max health 120 after +20 upgrade, got %f", got)
	}
}

func TestApplyMultiplicativeUpgrade(t *testing.T) {
	component := NewComponent(PlayerBase())

	component.Apply(StatChange{Layer: LayerUpgrade, Stat: StatMoveSpeed, Mul: 1.1})
	component.Resolve()

	if got, want := component.Value(StatMoveSpeed), 150*1.1; got != want {
		t.Fatalf("expected move speed %f after x1.1 upgrade, got %f", want, got)
	}
}

func TestApplyFoldsAddsBeforeMuls(t *testing.T) {
	component := NewComponent(PlayerBase())

	component.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackDamage, Add: 5})
	component.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackDamage, Mul: 2})
	component.Resolve()

	if got := component.Value(StatAttackDamage); got != 30 {
		t.Fatalf("expected (10+5)*2 = 30, got %f", got)
	}
}

func TestApplyOrderDoesNotChangeResult(t *testing.T) {
	first := NewComponent(PlayerBase())
	first.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackSpeed, Mul: 1.15})
	first.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackSpeed, Add: 1})
	first.Resolve()

	second := NewComponent(PlayerBase())
	second.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackSpeed, Add: 1})
	second.Apply(StatChange{Layer: LayerUpgrade, Stat: StatAttackSpeed, Mul: 1.15})
	second.Resolve()

	if first.Value(StatAttackSpeed) != second.Value(StatAttackSpeed) {
		t.Fatalf("expected order-independent resolution, got %f vs %f",
			first.Value(StatAttackSpeed), second.Value(StatAttackSpeed))
	}
}

func TestApplyIgnoresOutOfRangeTargets(t *testing.T) {
	component := NewComponent(PlayerBase())

	component.Apply(StatChange{Layer: layerCount, Stat: StatMoveSpeed, Add: 999})
	component.Apply(StatChange{Layer: LayerUpgrade, Stat: StatCount, Add: 999})
	component.Resolve()

	if got := component.Value(StatMoveSpeed); got != 150 {
		t.Fatalf("expected out-of-range changes to be ignored, got %f", got)
	}
}
