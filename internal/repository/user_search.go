package repository

import (
	"context"
	"strings"
	"time"

	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

// UserRow is one row of the user search projection.
type UserRow struct {
	ID                uint
	FirstName         string
	LastName          string
	Address           string
	Email             string
	UserStatus        models.RecordStatus
	DateOfBirth       *time.Time
	IDNumber          string
	PhoneNumber       string
	Verified          bool
	CompanyID         *uint
	CompanyName       *string
	CompanyType       *string
	CompanyStatus     *string
	AccountID         uint
	CountryCode       string
	AccountType       string
	BranchID          *uint
	BranchName        *string
	BranchOpeningDate *time.Time
	BranchStatus      *string
	RoleID            *uint
	RoleName          *string
	RoleDescription   *string
	RoleStatus        *string
}

const userSearchColumns = `SELECT usr.id AS id,
       usr.first_name AS first_name,
       usr.last_name AS last_name,
       usr.address AS address,
       usr.email AS email,
       usr.record_status AS user_status,
       usr.date_of_birth AS date_of_birth,
       usr.id_number AS id_number,
       usr.phone_number AS phone_number,
       usr.is_verified AS verified,
       com.id AS company_id,
       com.name AS company_name,
       com.company_type AS company_type,
       com.record_status AS company_status,
       acc.id AS account_id,
       acc.country_code AS country_code,
       acc.account_type AS account_type,
       br.id AS branch_id,
       br.name AS branch_name,
       br.created_on AS branch_opening_date,
       br.record_status AS branch_status,
       rl.id AS role_id,
       rl.name AS role_name,
       rl.description AS role_description,
       rl.record_status AS role_status`

const userSearchFrom = `
FROM app_user usr
         INNER JOIN account acc ON acc.id = usr.account_id
         LEFT OUTER JOIN role rl ON rl.id = usr.role_id
         LEFT OUTER JOIN company com ON com.id = usr.company_id
         LEFT OUTER JOIN branch br ON br.id = usr.branch_id
         LEFT OUTER JOIN app_user created_by ON created_by.id = usr.created_by
         LEFT OUTER JOIN app_user modified_by ON modified_by.id = usr.modified_by`

// CompiledUserSearch holds the parameterised page and count statements for
// one search. Both share Args except for the trailing pagination values.
type CompiledUserSearch struct {
	Where     string
	Args      []any
	PageSQL   string
	PageArgs  []any
	CountSQL  string
	CountArgs []any
}

type predicates struct {
	clauses []string
	args    []any
}

func (p *predicates) add(clause string, args ...any) {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
}

func contains(v string) string {
	return "%" + v + "%"
}

// compactName matches how full names are compared: first and last name
// joined with no separator.
func compactName(v string) string {
	return contains(strings.ReplaceAll(v, " ", ""))
}

// CompileUserSearch turns q into SQL. Nil filters add nothing. A nil Limit
// leaves the page unbounded and a nil Offset starts at zero.
func CompileUserSearch(q cqrs.UserSearchQuery) CompiledUserSearch {
	var p predicates
	if q.ID != nil {
		p.add("usr.id = ?", *q.ID)
	}
	if q.FullName != nil {
		p.add("CONCAT(usr.first_name, usr.last_name) ILIKE ?", compactName(*q.FullName))
	}
	if q.Address != nil {
		p.add("usr.address ILIKE ?", contains(*q.Address))
	}
	if q.Email != nil {
		p.add("usr.email ILIKE ?", contains(*q.Email))
	}
	if q.UserStatus != nil {
		p.add("usr.record_status = ?", string(*q.UserStatus))
	}
	if q.DateOfBirth != nil {
		p.add("usr.date_of_birth = ?", q.DateOfBirth.Format(cqrs.DateLayout))
	}
	if q.IDNumber != nil {
		p.add("usr.id_number ILIKE ?", contains(*q.IDNumber))
	}
	if q.PhoneNumber != nil {
		p.add("usr.phone_number ILIKE ?", contains(*q.PhoneNumber))
	}
	if q.Verified != nil {
		p.add("usr.is_verified = ?", *q.Verified)
	}
	if q.CreatedByFullName != nil {
		p.add("CONCAT(created_by.first_name, created_by.last_name) ILIKE ?", compactName(*q.CreatedByFullName))
	}
	if q.ModifiedByFullName != nil {
		p.add("CONCAT(modified_by.first_name, modified_by.last_name) ILIKE ?", compactName(*q.ModifiedByFullName))
	}
	if q.AccountID != nil {
		p.add("usr.account_id = ?", *q.AccountID)
	}
	if q.CompanyName != nil {
		p.add("com.name ILIKE ?", contains(*q.CompanyName))
	}
	if q.BranchName != nil {
		p.add("br.name ILIKE ?", contains(*q.BranchName))
	}
	if q.RoleID != nil {
		p.add("usr.role_id = ?", *q.RoleID)
	}
	if q.RoleName != nil {
		p.add("rl.name ILIKE ?", contains(*q.RoleName))
	}
	if q.Scoped {
		p.add("usr.company_id IN ?", nonEmpty(q.CompanyIDs))
		p.add("usr.branch_id IN ?", nonEmpty(q.BranchIDs))
	}

	where := ""
	if len(p.clauses) > 0 {
		where = "\nWHERE " + strings.Join(p.clauses, "\n  AND ")
	}

	compiled := CompiledUserSearch{
		Where:     where,
		Args:      p.args,
		CountSQL:  "SELECT COUNT(*)" + userSearchFrom + where,
		CountArgs: p.args,
	}

	page := userSearchColumns + userSearchFrom + where + "\nORDER BY usr.id"
	pageArgs := append([]any{}, p.args...)
	if q.Limit != nil {
		page += "\nLIMIT ?"
		pageArgs = append(pageArgs, *q.Limit)
	}
	offset := 0
	if q.Offset != nil {
		offset = *q.Offset
	}
	page += "\nOFFSET ?"
	pageArgs = append(pageArgs, offset)

	compiled.PageSQL = page
	compiled.PageArgs = pageArgs
	return compiled
}

// nonEmpty keeps an empty scope from matching everything: id 0 never exists.
func nonEmpty(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{0}
	}
	return ids
}

type UserSearchRepository struct {
	db *gorm.DB
}

func NewUserSearchRepository(db *gorm.DB) *UserSearchRepository {
	return &UserSearchRepository{db: db}
}

// Search returns the requested page and the total number of matches.
func (r *UserSearchRepository) Search(ctx context.Context, q cqrs.UserSearchQuery) ([]UserRow, int64, error) {
	compiled := CompileUserSearch(q)

	var total int64
	if err := r.db.WithContext(ctx).Raw(compiled.CountSQL, compiled.CountArgs...).Scan(&total).Error; err != nil {
		return nil, 0, translate("count users", err)
	}
	if total == 0 {
		return []UserRow{}, 0, nil
	}

	rows := []UserRow{}
	if err := r.db.WithContext(ctx).Raw(compiled.PageSQL, compiled.PageArgs...).Scan(&rows).Error; err != nil {
		return nil, 0, translate("search users", err)
	}
	return rows, total, nil
}
