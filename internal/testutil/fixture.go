package testutil

import "github.com/roach88/condsql/internal/schema"

// Fixture returns a small linked sales schema with fixed group identities:
//
//	Countries(Id, Name)
//	Customers(Id, Name, CountryId -> Countries, Created)   index IX_Customers_Name
//	Orders(Id, CustomerId -> Customers, Amount, Note)      FK FK_Orders_Customer
//
// Each call builds fresh values so tests may modify them.
func Fixture() *schema.Database {
	countries := &schema.Table{
		FullName: schema.NewName("", "Countries"),
		GroupID:  "countries",
		Columns: []*schema.Column{
			{Name: "Id", DataType: "int", NotNull: true, AutoIncrement: true, GroupID: "countries.id"},
			{Name: "Name", DataType: "varchar(100)", NotNull: true, GroupID: "countries.name"},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "PK_Countries", Columns: []string{"Id"}},
	}
	customers := &schema.Table{
		FullName: schema.NewName("", "Customers"),
		GroupID:  "customers",
		Columns: []*schema.Column{
			{Name: "Id", DataType: "int", NotNull: true, AutoIncrement: true, GroupID: "customers.id"},
			{Name: "Name", DataType: "varchar(100)", NotNull: true, GroupID: "customers.name"},
			{Name: "CountryId", DataType: "int", GroupID: "customers.countryid"},
			{Name: "Created", DataType: "datetime", GroupID: "customers.created"},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}},
		ForeignKeys: []*schema.ForeignKey{
			{Name: "FK_Customers_Country", Columns: []string{"CountryId"}, RefTable: schema.NewName("", "Countries")},
		},
		Indexes: []*schema.Index{
			{Name: "IX_Customers_Name", Columns: []string{"Name"}},
		},
	}
	orders := &schema.Table{
		FullName: schema.NewName("", "Orders"),
		GroupID:  "orders",
		Columns: []*schema.Column{
			{Name: "Id", DataType: "int", NotNull: true, AutoIncrement: true, GroupID: "orders.id"},
			{Name: "CustomerId", DataType: "int", NotNull: true, GroupID: "orders.customerid"},
			{Name: "Amount", DataType: "decimal(10,2)", GroupID: "orders.amount"},
			{Name: "Note", DataType: "varchar(200)", GroupID: "orders.note"},
		},
		PrimaryKey: &schema.PrimaryKey{Name: "PK_Orders", Columns: []string{"Id"}},
		ForeignKeys: []*schema.ForeignKey{
			{
				Name:       "FK_Orders_Customer",
				Columns:    []string{"CustomerId"},
				RefTable:   schema.NewName("", "Customers"),
				RefColumns: []string{"Id"},
				OnDelete:   schema.Cascade,
			},
		},
	}
	db := &schema.Database{Tables: []*schema.Table{countries, customers, orders}}
	db.Link()
	return db
}
