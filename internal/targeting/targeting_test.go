package targeting

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/elearn/internal/model"
)

func matrixOf(rows map[string][]string) model.NotificationMatrix {
	m := model.NotificationMatrix{Rows: make(map[string]map[string]bool)}
	for dept, roles := range rows {
		flags := make(map[string]bool)
		for _, r := range roles {
			flags[r] = true
			if !slices.Contains(m.Roles, r) {
				m.Roles = append(m.Roles, r)
			}
		}
		m.Rows[dept] = flags
	}
	return m
}

func user(name, email, role string, depts ...string) model.UserRecord {
	return model.UserRecord{Name: name, Email: email, Role: role, Departments: depts}
}

func TestAliceBobScenario(t *testing.T) {
	directory := []model.UserRecord{
		user("Alice", "alice@x", "", "Sales"),
		user("Bob", "bob@x", "Manager", "Sales"),
	}
	matrix := matrixOf(map[string][]string{"Sales": {"Manager"}})

	got := ComputeNotifyTargets([]string{"Sales"}, "", "alice@x", directory, matrix)
	assert.Equal(t, []string{"bob@x"}, got)

	got = ComputeNotifyTargets([]string{"Sales"}, "Manager", "alice@x", directory, matrix)
	assert.Empty(t, got, "management-tier attempts must not broadcast")
}

func TestPrivacyGateIgnoresMatrix(t *testing.T) {
	directory := []model.UserRecord{
		user("Head", "head@x", "部長", model.WildcardDepartment),
		user("Deputy", "deputy@x", "次長", "Sales"),
	}
	matrices := []model.NotificationMatrix{
		{},
		matrixOf(map[string][]string{"Sales": {"部長", "次長"}}),
		matrixOf(map[string][]string{model.WildcardDepartment: {"部長", "次長"}}),
	}
	for i, m := range matrices {
		for _, role := range []string{"部長", "次長", "課長", "システム管理者", " x "} {
			t.Run(fmt.Sprintf("matrix%d/%s", i, role), func(t *testing.T) {
				assert.Empty(t, ComputeNotifyTargets([]string{"Sales"}, role, "me@x", directory, m))
			})
		}
	}
}

func TestIsManagement(t *testing.T) {
	assert.False(t, IsManagement(""))
	assert.False(t, IsManagement("   "))
	assert.True(t, IsManagement("部長"))
	assert.True(t, IsManagement("deputy head"))
}

func TestSelfExclusion(t *testing.T) {
	directory := []model.UserRecord{
		user("Alice", "Alice@X ", "Manager", "Sales"),
		user("Bob", "bob@x", "Manager", "Sales"),
	}
	matrix := matrixOf(map[string][]string{"Sales": {"Manager"}})

	got := ComputeNotifyTargets([]string{"Sales"}, "", "alice@x", directory, matrix)
	assert.Equal(t, []string{"bob@x"}, got)
}

func TestDeduplication(t *testing.T) {
	directory := []model.UserRecord{
		user("Bob", "bob@x", "Manager", "Sales", "Repair"),
		user("Bob (alt)", "bob@x", "Manager", model.WildcardDepartment),
		user("Carol", "carol@x", "Manager", "Repair"),
	}
	matrix := matrixOf(map[string][]string{
		"Sales":                  {"Manager"},
		"Repair":                 {"Manager"},
		model.WildcardDepartment: {"Manager"},
	})
	exam := []string{"Sales", "Repair"}

	first := ComputeNotifyTargets(exam, "", "alice@x", directory, matrix)
	second := ComputeNotifyTargets(exam, "", "alice@x", directory, matrix)
	assert.Equal(t, []string{"bob@x", "carol@x"}, first)
	assert.Equal(t, first, second)
}

func TestWildcards(t *testing.T) {
	directory := []model.UserRecord{
		user("Global admin", "admin@x", "システム管理者", model.WildcardDepartment),
		user("Repair head", "repair@x", "部長", "Repair"),
		user("Sales head", "sales@x", "部長", "Sales"),
	}

	t.Run("wildcard matrix row applies to every department", func(t *testing.T) {
		matrix := matrixOf(map[string][]string{model.WildcardDepartment: {"部長"}})
		got := ComputeNotifyTargets([]string{"Repair"}, "", "me@x", directory, matrix)
		assert.Equal(t, []string{"repair@x"}, got)
	})

	t.Run("wildcard directory entry matches any department", func(t *testing.T) {
		matrix := matrixOf(map[string][]string{"Warehouse": {"システム管理者"}})
		got := ComputeNotifyTargets([]string{"Warehouse"}, "", "me@x", directory, matrix)
		assert.Equal(t, []string{"admin@x"}, got)
	})

	t.Run("both wildcards", func(t *testing.T) {
		matrix := matrixOf(map[string][]string{model.WildcardDepartment: {"システム管理者"}})
		got := ComputeNotifyTargets([]string{"Anything"}, "", "me@x", directory, matrix)
		assert.Equal(t, []string{"admin@x"}, got)
	})
}

func TestMultiDepartmentUnion(t *testing.T) {
	directory := []model.UserRecord{
		user("Repair head", "repair@x", "部長", "Repair"),
		user("HR head", "hr@x", "部長", "HR"),
	}
	matrix := matrixOf(map[string][]string{"Repair": {"部長"}, "HR": {"部長"}})

	got := ComputeNotifyTargets([]string{"Sales", "Repair"}, "", "me@x", directory, matrix)
	assert.Equal(t, []string{"repair@x"}, got, "only departments shared with the test-taker qualify")
}

func TestNoActiveRoles(t *testing.T) {
	directory := []model.UserRecord{user("Bob", "bob@x", "Manager", "Sales")}

	assert.Empty(t, ComputeNotifyTargets([]string{"Sales"}, "", "me@x", directory, model.NotificationMatrix{}))

	matrix := matrixOf(map[string][]string{"Repair": {"Manager"}})
	assert.Empty(t, ComputeNotifyTargets([]string{"Sales"}, "", "me@x", directory, matrix))
}

func TestRoleMustBeActive(t *testing.T) {
	directory := []model.UserRecord{
		user("Bob", "bob@x", "Manager", "Sales"),
		user("Dan", "dan@x", "Clerk", "Sales"),
		user("Eve", "eve@x", "", "Sales"),
	}
	matrix := matrixOf(map[string][]string{"Sales": {"Manager"}})

	got := ComputeNotifyTargets([]string{"Sales"}, "", "me@x", directory, matrix)
	assert.Equal(t, []string{"bob@x"}, got)
}

func TestEmptyEmailExcluded(t *testing.T) {
	directory := []model.UserRecord{
		user("NoMail", "", "Manager", "Sales"),
		user("Spaces", "   ", "Manager", "Sales"),
	}
	matrix := matrixOf(map[string][]string{"Sales": {"Manager"}})

	assert.Empty(t, ComputeNotifyTargets([]string{"Sales"}, "", "", directory, matrix))
}

func TestNeverContainsSelf(t *testing.T) {
	directory := []model.UserRecord{
		user("A", "a@x", "Manager", model.WildcardDepartment),
		user("B", "b@x", "Manager", "Sales"),
		user("C", "c@x", "Lead", "Repair"),
	}
	matrix := matrixOf(map[string][]string{
		model.WildcardDepartment: {"Manager", "Lead"},
	})
	for _, u := range directory {
		got := ComputeNotifyTargets([]string{"Sales", "Repair"}, "", u.Email, directory, matrix)
		require.NotContains(t, got, u.Email)
	}
}
