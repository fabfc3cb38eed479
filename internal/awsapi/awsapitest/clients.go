package awsapitest

import (
	"sync"

	"github.com/yairfalse/corral/internal/awsapi"
)

var _ awsapi.Clients = (*Clients)(nil)

// Clients satisfies awsapi.Clients with the same double for every region.
// Nil service fields are replaced by empty doubles on first use.
type Clients struct {
	EC2Client        *EC2
	S3Client         *S3
	CloudWatchClient *CloudWatch
	RDSClient        *RDS
	LambdaClient     *Lambda
	ELBClient        *ELB
	LogsClient       *Logs
	IAMClient        *IAM

	mu      sync.Mutex
	regions []string
}

func (c *Clients) note(region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions = append(c.regions, region)
}

// Regions returns every region a client was requested for, in request order.
func (c *Clients) Regions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.regions...)
}

func (c *Clients) EC2(region string) awsapi.EC2API {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EC2Client == nil {
		c.EC2Client = &EC2{}
	}
	return c.EC2Client
}

func (c *Clients) S3(region string) awsapi.S3API {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.S3Client == nil {
		c.S3Client = &S3{}
	}
	return c.S3Client
}

func (c *Clients) CloudWatch(region string) awsapi.CloudWatchAPI {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CloudWatchClient == nil {
		c.CloudWatchClient = &CloudWatch{}
	}
	return c.CloudWatchClient
}

func (c *Clients) RDS(region string) awsapi.RDSAPI {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RDSClient == nil {
		c.RDSClient = &RDS{}
	}
	return c.RDSClient
}

func (c *Clients) Lambda(region string) awsapi.LambdaAPI {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LambdaClient == nil {
		c.LambdaClient = &Lambda{}
	}
	return c.LambdaClient
}

func (c *Clients) ELB(region string) awsapi.ELBAPI {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ELBClient == nil {
		c.ELBClient = &ELB{}
	}
	return c.ELBClient
}

func (c *Clients) Logs(region string) awsapi.LogsAPI {
	c.note(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.LogsClient == nil {
		c.LogsClient = &Logs{}
	}
	return c.LogsClient
}

func (c *Clients) IAM() awsapi.IAMAPI {
	c.note("global")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.IAMClient == nil {
		c.IAMClient = &IAM{}
	}
	return c.IAMClient
}
