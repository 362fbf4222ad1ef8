package main

import (
	"github.com/darynku/ignorelogger"
	"github.com/darynku/ignorelogger/document"
)

// TestDto hides its password through the ignore tag.
type TestDto struct {
	Password string `json:"password" log:"ignore"`
	Name     string `json:"name"`
}

// UserCredentials carries no tags; the built-in rules hide its secrets.
type UserCredentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ApiKey      string `json:"apiKey"`
	DisplayName string `json:"displayName"`
}

type UserSettings struct {
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	SecretToken          string `json:"secretToken"`
}

type UserProfile struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Credentials UserCredentials `json:"credentials" log:"ignore"`
	Settings    UserSettings    `json:"settings"`
}

type RealResponse struct {
	Name  string `json:"name" log:"ignore"`
	Email string `json:"email"`
}

type MixedDataTest struct {
	PublicInfo   string            `json:"publicInfo"`
	SecretNumber string            `json:"secretNumber" log:"ignore"`
	SecretCodes  []string          `json:"secretCodes" log:"ignore"`
	PublicTags   []string          `json:"publicTags"`
	SecretDict   map[string]string `json:"secretDict" log:"ignore"`
}

type SingleFieldTest struct {
	OnlySecret string `json:"onlySecret" log:"ignore"`
}

type FileUploadModel struct {
	Description string             `json:"description"`
	File        *document.FileInfo `json:"file" log:"ignore"`
	IsPublic    bool               `json:"isPublic"`
	Category    string             `json:"category"`
	SecretData  string             `json:"secretData" log:"ignore"`
}

type MultipleFilesModel struct {
	BatchName string              `json:"batchName"`
	Files     []document.FileInfo `json:"files" log:"ignore"`
	Category  string              `json:"category"`
}

// models registers the request types whose tagged fields are also removed
// from captured bodies. RealResponse is left out: its ignored field is
// "name", which would strip every key containing "name" from every body.
func models() []ignorelogger.Option {
	return []ignorelogger.Option{
		ignorelogger.WithModel[TestDto](),
		ignorelogger.WithModel[UserProfile](),
		ignorelogger.WithModel[MixedDataTest](),
		ignorelogger.WithModel[SingleFieldTest](),
		ignorelogger.WithModel[FileUploadModel](),
		ignorelogger.WithModel[MultipleFilesModel](),
	}
}
