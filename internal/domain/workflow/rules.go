package workflow

import (
	"github.com/samber/lo"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

type ruleKey struct {
	from entities.QuoteStatus
	to   entities.QuoteStatus
	role entities.Role
}

// rule is one legal edge of the quote lifecycle
type rule struct {
	fields []string
	check  func(t *transition) error
}

func (r rule) selectsHotel() bool {
	return lo.Contains(r.fields, entities.FieldHotelID)
}

var (
	doctorProposalFields = []string{
		entities.FieldSurgeryCost,
		entities.FieldDiagnosis,
	}
	intakeFields = []string{
		entities.FieldSurgeryCost,
		entities.FieldDiagnosis,
		entities.FieldAppointmentDate,
		entities.FieldPatientName,
		entities.FieldPatientPhone,
		entities.FieldPatientEmail,
		entities.FieldWhatsAppNumber,
	}
	adminLogisticsFields = []string{
		entities.FieldHotelID,
		entities.FieldLogisticsFee,
	}
	patientConfirmFields = []string{
		entities.FieldHotelID,
		entities.FieldStayDays,
		entities.FieldIncludeMealPlan,
		entities.FieldIncludeLogistics,
		entities.FieldAppointmentDate,
		entities.FieldPatientName,
		entities.FieldPatientPhone,
		entities.FieldPatientEmail,
		entities.FieldWhatsAppNumber,
	}
	contactFields = []string{
		entities.FieldPatientName,
		entities.FieldPatientPhone,
		entities.FieldPatientEmail,
	}
)

// none is the pseudo status a quote has before it is created
const none entities.QuoteStatus = ""

var rules = buildRules()

func buildRules() map[ruleKey]rule {
	r := map[ruleKey]rule{
		{none, entities.QuoteStatusDraft, entities.RoleDoctor}:  {fields: intakeFields},
		{none, entities.QuoteStatusReview, entities.RoleDoctor}: {fields: intakeFields},

		{entities.QuoteStatusDraft, entities.QuoteStatusDraft, entities.RoleDoctor}:   {fields: doctorProposalFields},
		{entities.QuoteStatusDraft, entities.QuoteStatusReview, entities.RoleDoctor}:  {fields: doctorProposalFields},
		{entities.QuoteStatusReview, entities.QuoteStatusReview, entities.RoleDoctor}: {fields: doctorProposalFields},

		{entities.QuoteStatusReview, entities.QuoteStatusReview, entities.RoleAdmin}: {fields: adminLogisticsFields},
		{entities.QuoteStatusReview, entities.QuoteStatusReady, entities.RoleAdmin}:  {fields: adminLogisticsFields},
		{entities.QuoteStatusReady, entities.QuoteStatusReady, entities.RoleAdmin}:   {fields: adminLogisticsFields},

		{entities.QuoteStatusPendingPayment, entities.QuoteStatusPendingPayment, entities.RoleAdmin}: {
			fields: []string{entities.FieldLogisticsFee},
		},
		{entities.QuoteStatusPendingPayment, entities.QuoteStatusPaid, entities.RoleAdmin}: {
			check: requireApprovedPayment,
		},
	}

	for _, from := range []entities.QuoteStatus{entities.QuoteStatusReview, entities.QuoteStatusReady} {
		r[ruleKey{from, entities.QuoteStatusPendingPayment, entities.RolePatient}] = rule{
			fields: patientConfirmFields,
			check:  requireStayAndContact,
		}
		r[ruleKey{from, entities.QuoteStatusPaid, entities.RolePatient}] = rule{
			fields: patientConfirmFields,
			check:  requireZeroTotal,
		}
	}

	for _, from := range []entities.QuoteStatus{
		entities.QuoteStatusDraft,
		entities.QuoteStatusReview,
		entities.QuoteStatusReady,
		entities.QuoteStatusPendingPayment,
	} {
		r[ruleKey{from, entities.QuoteStatusRejected, entities.RoleAdmin}] = rule{}
	}

	return r
}

// AllowedTargets lists the statuses a role may move a quote to from its current status
func AllowedTargets(from entities.QuoteStatus, role entities.Role) []entities.QuoteStatus {
	var out []entities.QuoteStatus
	for _, to := range entities.QuoteStatuses {
		if _, ok := rules[ruleKey{from, to, role}]; ok {
			out = append(out, to)
		}
	}
	return out
}
