// Package plan owns the online replanning state machine.
//
// Responsibilities: the planning-phase FSM (INIT through EXEC_TRAJ and
// REPLAN_TRAJ), the time-indexed replan decision policy, the goal
// relocation search, the safety monitor, and packaging planned curves
// into outbound trajectory messages.
// Key types: Controller, FlightState, BoundaryConditions,
// TrajectoryMessage.
//
// The kinodynamic planner, the distance field and the messaging boundary
// are collaborators consumed through interfaces; this package never maps
// obstacles, searches paths, or fits curves itself.
// No SQL/database code is allowed in this package.
package plan
