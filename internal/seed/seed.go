package seed

import (
	"context"
	"errors"

	"EventSeries/internal/model"
	"EventSeries/internal/repository"
	"EventSeries/internal/service"

	"github.com/sirupsen/logrus"
)

type institutionSeed struct {
	Name string
	Code string
}

type userSeed struct {
	Input           service.CreateUserInput
	InstitutionCode string
}

var institutions = []institutionSeed{
	{"Central Bank of Trinidad and Tobago", "CBTT"},
	{"First Citizens Bank", "FCIT"},
	{"Sagicor", "SAGC"},
	{"Scotiabank", "SCOT"},
	{"TT Mortgage Bank", "TTMB"},
	{"TTUTC", "TTUT"},
	{"Ministry of Finance", "MOF"},
}

var users = []userSeed{
	{Input: service.CreateUserInput{FirstName: "Admin", LastName: "User", Username: "admin", Email: "admin@carifin.com", Password: "Admin123!", Role: string(model.RoleAdmin)}},
	{Input: service.CreateUserInput{FirstName: "HR", LastName: "CBTT", Username: "hr_cbtt", Email: "hr@cbtt.com", Password: "Hr123!", Role: string(model.RoleHR)}, InstitutionCode: "CBTT"},
	{Input: service.CreateUserInput{FirstName: "Scorer", LastName: "User", Username: "scorer", Email: "scorer@carifin.com", Password: "Scorer123!", Role: string(model.RoleScorer)}},
	{Input: service.CreateUserInput{FirstName: "Pulse", LastName: "Leader", Username: "pulse_cbtt", Email: "pulse@cbtt.com", Password: "Pulse123!", Role: string(model.RolePulseLeader), SocialMediaHandle: "@CBTT_Pulse"}, InstitutionCode: "CBTT"},
	{Input: service.CreateUserInput{FirstName: "HR2", LastName: "FCIT", Username: "hr_fcit", Email: "hr@fcit.com", Password: "Hr123!", Role: string(model.RoleHR)}, InstitutionCode: "FCIT"},
}

// Run 写入初始机构与用户，已存在的跳过（幂等）
func Run(ctx context.Context, store *repository.Store, log *logrus.Logger) error {
	instSvc := service.NewInstitutionService()
	userSvc := service.NewUserService()

	return store.Transaction(ctx, func(tx *repository.Store) error {
		for _, in := range institutions {
			if _, err := tx.Institutions.GetByCode(ctx, in.Code); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if _, err := instSvc.Create(ctx, tx, in.Name, in.Code); err != nil {
				return err
			}
			log.WithField("code", in.Code).Info("新增机构")
		}

		for _, u := range users {
			in := u.Input
			if u.InstitutionCode != "" {
				inst, err := tx.Institutions.GetByCode(ctx, u.InstitutionCode)
				if err != nil {
					return err
				}
				in.InstitutionID = &inst.ID
			}
			if _, err := userSvc.CreateUser(ctx, tx, in); err != nil {
				if errors.Is(err, service.ErrConflict) {
					log.WithField("username", in.Username).Info("用户已存在，跳过")
					continue
				}
				return err
			}
			log.WithFields(logrus.Fields{"username": in.Username, "role": in.Role}).Info("新增用户")
		}
		return nil
	})
}
