// Package orchestrator launches crawl runs on external compute and reports
// their coarse-grained status back. The crawler binary is packaged as an ECS
// task; one RunTask call equals one crawl run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog/log"

	appconfig "github.com/mfurukawa/dellwatch/internal/config"
	"github.com/mfurukawa/dellwatch/internal/models"
)

// ErrTaskNotFound is returned when a polled task ARN is unknown to the cluster.
var ErrTaskNotFound = errors.New("task not found")

// ECSLauncher starts crawl tasks on Fargate and polls their status.
type ECSLauncher struct {
	client *ecs.Client
	cfg    appconfig.ECSConfig
}

// NewECSLauncher builds an ECSLauncher using the default AWS credential chain.
func NewECSLauncher(ctx context.Context, cfg appconfig.ECSConfig) (*ECSLauncher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &ECSLauncher{client: ecs.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// StartRun launches one crawl task on the cluster using the newest active
// revision of the task family, and returns the task ARN as the run handle.
func (l *ECSLauncher) StartRun(ctx context.Context) (string, error) {
	taskDef, err := l.latestTaskDefinition(ctx)
	if err != nil {
		return "", err
	}

	out, err := l.client.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(l.cfg.Cluster),
		TaskDefinition: aws.String(taskDef),
		CapacityProviderStrategy: []types.CapacityProviderStrategyItem{
			{CapacityProvider: aws.String("FARGATE_SPOT"), Weight: 1},
		},
		NetworkConfiguration: &types.NetworkConfiguration{
			AwsvpcConfiguration: &types.AwsVpcConfiguration{
				Subnets:        l.cfg.Subnets,
				SecurityGroups: l.cfg.SecurityGroups,
				AssignPublicIp: types.AssignPublicIpEnabled,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("run task: %w", err)
	}
	if len(out.Tasks) == 0 {
		return "", fmt.Errorf("run task: no task started (failures: %d)", len(out.Failures))
	}

	arn := aws.ToString(out.Tasks[0].TaskArn)
	log.Info().Str("task_arn", arn).Str("task_definition", taskDef).Msg("crawl run launched")
	return arn, nil
}

// RunStatus polls one launched task and maps its lifecycle state. Diagnostic
// fields are filled in only for STOPPED tasks.
func (l *ECSLauncher) RunStatus(ctx context.Context, taskArn string) (*models.RunStatus, error) {
	out, err := l.client.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(l.cfg.Cluster),
		Tasks:   []string{taskArn},
	})
	if err != nil {
		return nil, fmt.Errorf("describe task: %w", err)
	}
	if len(out.Tasks) == 0 {
		return nil, ErrTaskNotFound
	}

	task := out.Tasks[0]
	status := &models.RunStatus{
		TaskArn: taskArn,
		Status:  models.RunState(aws.ToString(task.LastStatus)),
	}
	if status.Status == models.RunStateStopped {
		status.StoppedAt = task.StoppedAt
		status.StopReason = task.StoppedReason
		if len(task.Containers) > 0 {
			status.ExitCode = task.Containers[0].ExitCode
		}
	}
	return status, nil
}

// latestTaskDefinition resolves the newest active revision of the task family.
func (l *ECSLauncher) latestTaskDefinition(ctx context.Context) (string, error) {
	out, err := l.client.ListTaskDefinitions(ctx, &ecs.ListTaskDefinitionsInput{
		FamilyPrefix: aws.String(l.cfg.TaskFamily),
		Status:       types.TaskDefinitionStatusActive,
		Sort:         types.SortOrderDesc,
		MaxResults:   aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("list task definitions: %w", err)
	}
	if len(out.TaskDefinitionArns) == 0 {
		return "", fmt.Errorf("no active task definition for family %q", l.cfg.TaskFamily)
	}
	return out.TaskDefinitionArns[0], nil
}
