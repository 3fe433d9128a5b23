package models

// All lists every model managed by automatic migrations.
var All = []any{
	&Task{},
	&User{},
	&Action{},
}
