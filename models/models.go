package models

// All lists every model the application migrates.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&PostMedia{},
		&Reaction{},
		&Follow{},
		&UploadedFile{},
	}
}
