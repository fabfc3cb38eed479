package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// scanIAMUsers scans IAM users. IAM is account-wide so region is ignored.
func (s *Set) scanIAMUsers(ctx context.Context, _ string) ([]resource.Record, error) {
	client := s.clients.IAM()
	var records []resource.Record

	paginator := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("list users: %w", err)
		}
		for _, user := range page.Users {
			records = append(records, convertUser(ctx, client, user))
		}
	}

	return records, nil
}

func convertUser(ctx context.Context, client awsapi.IAMAPI, user iamtypes.User) resource.Record {
	name := aws.ToString(user.UserName)

	tags := NormalizeTags(user.Tags)
	if len(tags) == 0 {
		out, err := client.ListUserTags(ctx, &iam.ListUserTagsInput{UserName: user.UserName})
		if err != nil {
			log.Debug().Err(err).Str("user", name).Msg("list user tags failed")
		} else {
			tags = NormalizeTags(out.Tags)
		}
	}

	r := newRecord(resource.KindIAMUser, resource.GlobalRegion, aws.ToString(user.UserId), name, "active", tags)
	r.CreatedAt = timePtr(user.CreateDate)
	r.Extra["arn"] = aws.ToString(user.Arn)
	r.Extra["path"] = aws.ToString(user.Path)
	if user.PasswordLastUsed != nil {
		r.Extra["password_last_used"] = user.PasswordLastUsed.UTC()
	}
	return r
}

// scanIAMRoles scans IAM roles.
func (s *Set) scanIAMRoles(ctx context.Context, _ string) ([]resource.Record, error) {
	client := s.clients.IAM()
	var records []resource.Record

	paginator := iam.NewListRolesPaginator(client, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("list roles: %w", err)
		}
		for _, role := range page.Roles {
			records = append(records, convertRole(ctx, client, role))
		}
	}

	return records, nil
}

func convertRole(ctx context.Context, client awsapi.IAMAPI, role iamtypes.Role) resource.Record {
	name := aws.ToString(role.RoleName)

	tags := NormalizeTags(role.Tags)
	if len(tags) == 0 {
		out, err := client.ListRoleTags(ctx, &iam.ListRoleTagsInput{RoleName: role.RoleName})
		if err != nil {
			log.Debug().Err(err).Str("role", name).Msg("list role tags failed")
		} else {
			tags = NormalizeTags(out.Tags)
		}
	}

	r := newRecord(resource.KindIAMRole, resource.GlobalRegion, aws.ToString(role.RoleId), name, "active", tags)
	r.CreatedAt = timePtr(role.CreateDate)
	r.Extra["arn"] = aws.ToString(role.Arn)
	r.Extra["path"] = aws.ToString(role.Path)
	r.Extra["max_session_duration"] = int(aws.ToInt32(role.MaxSessionDuration))
	return r
}
