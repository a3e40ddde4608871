package models

import "time"

// AppUserView is the read projection of a user. Password is always empty
// and Authentication only carries a token right after a successful login.
type AppUserView struct {
	ID             uint            `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	DateOfBirth    *time.Time      `json:"dateOfBirth,omitempty"`
	IDNumber       string          `json:"idNumber,omitempty"`
	IDType         IDType          `json:"idType,omitempty"`
	Address        string          `json:"address"`
	Email          string          `json:"email"`
	PhoneNumber    string          `json:"phoneNumber"`
	Password       *string         `json:"password"`
	Verified       bool            `json:"verified"`
	UserStatus     RecordStatus    `json:"userStatus"`
	Authentication string          `json:"authentication,omitempty"`
	Account        *AccountSummary `json:"account,omitempty"`
	Company        *CompanySummary `json:"company,omitempty"`
	Branch         *BranchSummary  `json:"branch,omitempty"`
	Role           *RoleSummary    `json:"role,omitempty"`
}

type AccountSummary struct {
	ID          uint        `json:"id"`
	AccountType AccountType `json:"accountType"`
	CountryCode string      `json:"countryCode"`
}

type CompanySummary struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	CompanyType  CompanyType  `json:"companyType"`
	RecordStatus RecordStatus `json:"recordStatus"`
}

type BranchSummary struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	OpeningDate  time.Time    `json:"openingDate"`
	RecordStatus RecordStatus `json:"recordStatus"`
}

type RoleSummary struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	RecordStatus RecordStatus `json:"recordStatus"`
	Permissions  []string     `json:"permissions,omitempty"`
}

// UserSummary is the organization-scoped user projection returned by the
// user login flow.
type UserSummary struct {
	ID               uint    `json:"id"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	PhoneNumber      string  `json:"phoneNumber"`
	Password         *string `json:"password"`
	Verified         bool    `json:"verified"`
	OrganizationID   uint    `json:"organizationId,omitempty"`
	OrganizationName string  `json:"organizationName,omitempty"`
	Authentication   string  `json:"authentication,omitempty"`
}

type ActionResponse struct {
	ID uint `json:"id"`
}

type RecordHolder[T any] struct {
	TotalRecords int64 `json:"totalRecords"`
	Records      []T   `json:"records"`
}

// ExternalUser is the record exchanged with the external user service.
type ExternalUser struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website,omitempty"`
}

// UserDetails is what the credential check needs about a user.
type UserDetails struct {
	User        *AppUser
	Authorities []string
}

// UserToView projects a user and whatever associations are loaded on it.
func UserToView(u *AppUser) *AppUserView {
	view := &AppUserView{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth,
		IDNumber:    u.IDNumber,
		IDType:      u.IDType,
		Address:     u.Address,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Verified:    u.Verified,
		UserStatus:  u.RecordStatus,
	}
	if u.Account != nil {
		view.Account = &AccountSummary{ID: u.Account.ID, AccountType: u.Account.AccountType, CountryCode: u.Account.CountryCode}
	}
	if u.Company != nil {
		view.Company = &CompanySummary{ID: u.Company.ID, Name: u.Company.Name, CompanyType: u.Company.CompanyType, RecordStatus: u.Company.RecordStatus}
	}
	if u.Branch != nil {
		view.Branch = &BranchSummary{ID: u.Branch.ID, Name: u.Branch.Name, OpeningDate: u.Branch.CreatedOn, RecordStatus: u.Branch.RecordStatus}
	}
	if u.Role != nil {
		view.Role = RoleToSummary(u.Role)
	}
	return view
}

func RoleToSummary(r *Role) *RoleSummary {
	summary := &RoleSummary{ID: r.ID, Name: r.Name, Description: r.Description, RecordStatus: r.RecordStatus}
	if len(r.Permissions) > 0 {
		summary.Permissions = RoleAuthorities(r)
	}
	return summary
}

// RoleAuthorities lists the permission names granted by r, empty for a nil
// role.
func RoleAuthorities(r *Role) []string {
	authorities := []string{}
	if r == nil {
		return authorities
	}
	for _, p := range r.Permissions {
		authorities = append(authorities, p.Name)
	}
	return authorities
}
