package bus

import "fmt"

// Redis key pattern helpers
//
// All keys are namespaced by instance name so that several pagesmith runs can
// share one Redis server without seeing each other's mailboxes.
//
// Key pattern: pagesmith:{instance_name}:{entity}[:{agent_id}]

// MailboxKey returns the Redis list holding an agent's mailbox.
// Pattern: pagesmith:{instance_name}:mailbox:{agent_id}
func MailboxKey(instanceName string, id AgentID) string {
	return fmt.Sprintf("pagesmith:%s:mailbox:%s", instanceName, id)
}

// AgentsKey returns the Redis set holding the registered agent ids.
// Pattern: pagesmith:{instance_name}:agents
func AgentsKey(instanceName string) string {
	return fmt.Sprintf("pagesmith:%s:agents", instanceName)
}
