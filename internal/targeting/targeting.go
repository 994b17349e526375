// Package targeting decides who receives the administrative notification
// for a completed exam.
package targeting

import (
	"slices"
	"strings"

	"github.com/pavelanni/elearn/internal/model"
)

// IsManagement reports whether a role is management tier. This is the only
// privacy rule: any non-empty role suppresses the broadcast, so a
// management-tier test-taker is notified personally and nobody else is.
func IsManagement(role string) bool {
	return strings.TrimSpace(role) != ""
}

// ComputeNotifyTargets returns the de-duplicated, sorted email addresses
// that should receive the administrative notification for an attempt by a
// test-taker in examDepartments with examRole and examEmail.
func ComputeNotifyTargets(
	examDepartments []string,
	examRole string,
	examEmail string,
	directory []model.UserRecord,
	matrix model.NotificationMatrix,
) []string {
	if IsManagement(examRole) {
		return nil
	}

	active := matrix.ActiveRoles(examDepartments)
	if len(active) == 0 {
		return nil
	}

	self := normalizeEmail(examEmail)
	seen := make(map[string]bool)
	var targets []string
	for _, u := range directory {
		if !active[u.Role] {
			continue
		}
		email := strings.TrimSpace(u.Email)
		if email == "" {
			continue
		}
		// The test-taker gets their own personal message instead.
		if normalizeEmail(email) == self {
			continue
		}
		if !u.HasWildcard() && !sharesDepartment(u.Departments, examDepartments) {
			continue
		}
		key := normalizeEmail(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, email)
	}
	slices.Sort(targets)
	return targets
}

func sharesDepartment(a, b []string) bool {
	for _, d := range a {
		if d != "" && slices.Contains(b, d) {
			return true
		}
	}
	return false
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
