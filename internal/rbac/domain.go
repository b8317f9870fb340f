package rbac

import "github.com/freshmart/freshmart-pos/internal/shared"

// Permissions granted to roles.
const (
	PermCatalogCreate    = "catalog.create"
	PermCatalogManage    = "catalog.manage"
	PermInventoryEdit    = "inventory.edit"
	PermSalesManage      = "sales.manage"
	PermReportsView      = "reports.view"
	PermReportsAdmin     = "reports.admin"
	PermTransactionsView = "transactions.view"
	PermReceiptsAny      = "receipts.any"
	PermBagUse           = "bag.use"
	PermOrdersOwn        = "orders.own"
	PermAuditView        = "audit.view"
)

var rolePermissions = map[shared.Role][]string{
	shared.RoleAdmin: {
		PermCatalogCreate, PermCatalogManage, PermInventoryEdit, PermSalesManage,
		PermReportsView, PermReportsAdmin, PermTransactionsView, PermReceiptsAny,
		PermAuditView,
	},
	shared.RoleEmployee: {
		PermCatalogCreate, PermInventoryEdit, PermReportsView, PermTransactionsView,
		PermReceiptsAny, PermBagUse,
	},
	shared.RoleCustomer: {
		PermBagUse, PermOrdersOwn,
	},
}
