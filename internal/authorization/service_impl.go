package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/journalpay/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads persisted policies and tops them up with the built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, role, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, role, object, action string) {
	s.log.Info("authorization denied",
		zap.String("role", role),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	target := object
	_ = s.auditSvc.AuditLog(ctx, "", nil, "authorization.denied", "authorization", &target, map[string]any{
		"role":   role,
		"action": action,
	})
}

func roleSubject(role string) string {
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleSubject(RoleClient), ObjectArticle, ActionArticleSubmit},
		{roleSubject(RoleClient), ObjectArticle, ActionArticleRevise},
		{roleSubject(RoleClient), ObjectServiceOrder, ActionOrderPlace},
		{roleSubject(RoleClient), ObjectPayment, ActionPaymentView},
		{roleSubject(RoleClient), ObjectReport, ActionDashboardView},

		{roleSubject(RoleWriter), ObjectServiceOrder, ActionUDCView},
		{roleSubject(RoleWriter), ObjectServiceOrder, ActionUDCAssign},

		{roleSubject(RoleJournalManager), ObjectArticle, ActionArticleReview},

		{roleSubject(RoleAccountant), ObjectReport, ActionFinancialView},

		{roleSubject(RoleAdmin), ObjectServiceOrder, ActionPrintingUpdate},
		{roleSubject(RoleAdmin), ObjectServiceOrder, ActionPrintingAssignee},
		{roleSubject(RoleAdmin), ObjectAuditLog, ActionAuditLogView},
	}
	// Every staff role can also act as a client; admin inherits all staff grants.
	groupings := [][]string{
		{roleSubject(RoleWriter), roleSubject(RoleClient)},
		{roleSubject(RoleJournalManager), roleSubject(RoleClient)},
		{roleSubject(RoleAccountant), roleSubject(RoleClient)},
		{roleSubject(RoleAdmin), roleSubject(RoleWriter)},
		{roleSubject(RoleAdmin), roleSubject(RoleJournalManager)},
		{roleSubject(RoleAdmin), roleSubject(RoleAccountant)},
	}

	for _, policy := range policies {
		if has, _ := enforcer.HasPolicy(policy); has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	for _, grouping := range groupings {
		if has, _ := enforcer.HasGroupingPolicy(grouping); has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
