package cqrs

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mojagap/moja-node/shared/models"
)

// ---------- User queries ----------

// GetUserQuery fetches a single user inside the requesting user's account.
type GetUserQuery struct {
	UserID           uint
	RequestingUserID uint
}

// UserSearchQuery is the typed form of the user search parameters.
// A nil field places no constraint on its column.
type UserSearchQuery struct {
	ID                 *uint
	AccountID          *uint
	FullName           *string
	Address            *string
	Email              *string
	UserStatus         *models.RecordStatus
	DateOfBirth        *time.Time
	IDNumber           *string
	PhoneNumber        *string
	Verified           *bool
	CreatedByFullName  *string
	ModifiedByFullName *string
	CompanyName        *string
	BranchName         *string
	RoleID             *uint
	RoleName           *string
	Limit              *int
	Offset             *int

	// Scope set by the query service, never by the caller.
	CompanyIDs []uint
	BranchIDs  []uint
	Scoped     bool
}

const DateLayout = "2006-01-02"

// ParseUserSearchQuery converts flat request parameters. Empty values and
// unknown keys are ignored.
func ParseUserSearchQuery(params map[string]string) (UserSearchQuery, error) {
	var q UserSearchQuery
	var err error
	for key, value := range params {
		if value == "" {
			continue
		}
		switch key {
		case "id":
			q.ID, err = parseUint(key, value)
		case "accountId":
			q.AccountID, err = parseUint(key, value)
		case "roleId":
			q.RoleID, err = parseUint(key, value)
		case "limit":
			q.Limit, err = parseInt(key, value)
		case "offset":
			q.Offset, err = parseInt(key, value)
		case "verified":
			var b bool
			b, err = strconv.ParseBool(value)
			if err == nil {
				q.Verified = &b
			} else {
				err = fmt.Errorf("%s: %w", key, err)
			}
		case "dateOfBirth":
			var t time.Time
			t, err = time.Parse(DateLayout, value)
			if err == nil {
				q.DateOfBirth = &t
			} else {
				err = fmt.Errorf("%s: %w", key, err)
			}
		case "userStatus":
			s := models.RecordStatus(value)
			q.UserStatus = &s
		case "fullName":
			q.FullName = strPtr(value)
		case "address":
			q.Address = strPtr(value)
		case "email":
			q.Email = strPtr(value)
		case "idNumber":
			q.IDNumber = strPtr(value)
		case "phoneNumber":
			q.PhoneNumber = strPtr(value)
		case "createdByFullName":
			q.CreatedByFullName = strPtr(value)
		case "modifiedByFullName":
			q.ModifiedByFullName = strPtr(value)
		case "companyName":
			q.CompanyName = strPtr(value)
		case "branchName":
			q.BranchName = strPtr(value)
		case "roleName":
			q.RoleName = strPtr(value)
		}
		if err != nil {
			return UserSearchQuery{}, err
		}
	}
	return q, nil
}

func parseUint(key, value string) (*uint, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	u := uint(n)
	return &u, nil
}

func parseInt(key, value string) (*int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s: must be a non-negative integer", key)
	}
	return &n, nil
}

func strPtr(s string) *string { return &s }

// ---------- External user queries ----------

type GetExternalUserQuery struct {
	ID               int
	RequestingUserID uint
}
