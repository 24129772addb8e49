package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysUser{},
	&SysAuditLog{},
	// Inventory
	&Product{},
}
