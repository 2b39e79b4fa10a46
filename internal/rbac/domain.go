// Package rbac provides a closed permission set and the policy evaluation
// middleware used by HTTP handlers. Authentication happens upstream; only the
// resolved actor id reaches this layer.
package rbac

// Permission is an atomic capability. The set is a closed enumeration;
// unknown strings are never granted.
type Permission string

const (
	PermOrdersView          Permission = "sales.orders.view"
	PermOrdersEdit          Permission = "sales.orders.edit"
	PermInvoicesView        Permission = "billing.invoices.view"
	PermInvoicesSync        Permission = "billing.invoices.sync"
	PermCommissionView      Permission = "commission.view"
	PermCommissionCalculate Permission = "commission.calculate"
	PermCommissionApprove   Permission = "commission.approve"
	PermCommissionPay       Permission = "commission.pay"
	PermCustomersView       Permission = "sales.customers.view"
	PermBalanceAdjust       Permission = "sales.customers.balance_adjust"
)

// AllPermissions lists every known permission, used for seeding and admin UIs.
var AllPermissions = []Permission{
	PermOrdersView, PermOrdersEdit,
	PermInvoicesView, PermInvoicesSync,
	PermCommissionView, PermCommissionCalculate, PermCommissionApprove, PermCommissionPay,
	PermCustomersView, PermBalanceAdjust,
}

// Valid reports whether p belongs to the closed permission set.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}
