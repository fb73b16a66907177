package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// WizardTransitions counts accepted wizard moves; kind is next, skip, back, close or finish.
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard transitions by step and kind",
		},
		[]string{"step", "kind"},
	)

	WizardCollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_collaborator_failures_total",
			Help: "Collaborator calls that failed during a wizard session",
		},
		[]string{"collaborator"},
	)

	// WorkflowActions counts dossier actions; outcome is advanced, rejected, action_failed or update_failed.
	WorkflowActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_actions_total",
			Help: "Dossier workflow actions by outcome",
		},
		[]string{"action", "outcome"},
	)
)
