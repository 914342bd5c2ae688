package assessment

import "context"

// StaticCatalog serves a fixed control vocabulary.
type StaticCatalog struct {
	controls []Control
}

// NewStaticCatalog builds a catalog over the given controls.
func NewStaticCatalog(controls []Control) *StaticCatalog {
	return &StaticCatalog{controls: controls}
}

func (c *StaticCatalog) Controls(ctx context.Context) ([]Control, error) {
	out := make([]Control, len(c.controls))
	copy(out, c.controls)
	return out, nil
}

// CSF20 returns the NIST CSF 2.0 subcategory vocabulary used as the default
// reference framework.
func CSF20() []Control {
	return []Control{
		{ID: "GV.OC-01", Function: "GV", Category: "GV.OC", Name: "Organizational mission is understood"},
		{ID: "GV.OC-02", Function: "GV", Category: "GV.OC", Name: "Stakeholder expectations are understood"},
		{ID: "GV.OC-03", Function: "GV", Category: "GV.OC", Name: "Legal and regulatory requirements are managed"},
		{ID: "GV.OC-04", Function: "GV", Category: "GV.OC", Name: "Critical objectives and services are communicated"},
		{ID: "GV.OC-05", Function: "GV", Category: "GV.OC", Name: "Outcomes and dependencies are communicated"},
		{ID: "GV.RM-01", Function: "GV", Category: "GV.RM", Name: "Risk management objectives are established"},
		{ID: "GV.RM-02", Function: "GV", Category: "GV.RM", Name: "Risk appetite and tolerance are established"},
		{ID: "GV.RM-03", Function: "GV", Category: "GV.RM", Name: "Risk management is included in enterprise risk processes"},
		{ID: "GV.RM-04", Function: "GV", Category: "GV.RM", Name: "Strategic direction on risk response is established"},
		{ID: "GV.RM-05", Function: "GV", Category: "GV.RM", Name: "Lines of communication for risk are established"},
		{ID: "GV.RM-06", Function: "GV", Category: "GV.RM", Name: "Standardized methods for risk are established"},
		{ID: "GV.RM-07", Function: "GV", Category: "GV.RM", Name: "Strategic opportunities are included in risk discussions"},
		{ID: "GV.RR-01", Function: "GV", Category: "GV.RR", Name: "Leadership is accountable for cybersecurity risk"},
		{ID: "GV.RR-02", Function: "GV", Category: "GV.RR", Name: "Roles and responsibilities are established"},
		{ID: "GV.RR-03", Function: "GV", Category: "GV.RR", Name: "Adequate resources are allocated"},
		{ID: "GV.RR-04", Function: "GV", Category: "GV.RR", Name: "Cybersecurity is included in HR practices"},
		{ID: "GV.PO-01", Function: "GV", Category: "GV.PO", Name: "Policy is established and communicated"},
		{ID: "GV.PO-02", Function: "GV", Category: "GV.PO", Name: "Policy is reviewed and updated"},
		{ID: "GV.OV-01", Function: "GV", Category: "GV.OV", Name: "Strategy outcomes are reviewed"},
		{ID: "GV.OV-02", Function: "GV", Category: "GV.OV", Name: "Strategy is reviewed and adjusted"},
		{ID: "GV.OV-03", Function: "GV", Category: "GV.OV", Name: "Performance is evaluated and reviewed"},
		{ID: "GV.SC-01", Function: "GV", Category: "GV.SC", Name: "Supply chain risk program is established"},
		{ID: "GV.SC-02", Function: "GV", Category: "GV.SC", Name: "Supplier roles and responsibilities are established"},
		{ID: "GV.SC-03", Function: "GV", Category: "GV.SC", Name: "Supply chain risk is integrated into risk management"},
		{ID: "GV.SC-04", Function: "GV", Category: "GV.SC", Name: "Suppliers are known and prioritized"},
		{ID: "GV.SC-05", Function: "GV", Category: "GV.SC", Name: "Requirements are established for suppliers"},
		{ID: "GV.SC-06", Function: "GV", Category: "GV.SC", Name: "Due diligence is performed before relationships"},
		{ID: "GV.SC-07", Function: "GV", Category: "GV.SC", Name: "Supplier risks are understood and managed"},
		{ID: "GV.SC-08", Function: "GV", Category: "GV.SC", Name: "Suppliers are included in incident planning"},
		{ID: "GV.SC-09", Function: "GV", Category: "GV.SC", Name: "Supply chain security is monitored through lifecycle"},
		{ID: "GV.SC-10", Function: "GV", Category: "GV.SC", Name: "Post-relationship plans are established"},
		{ID: "ID.AM-01", Function: "ID", Category: "ID.AM", Name: "Hardware inventories are maintained"},
		{ID: "ID.AM-02", Function: "ID", Category: "ID.AM", Name: "Software inventories are maintained"},
		{ID: "ID.AM-03", Function: "ID", Category: "ID.AM", Name: "Network communication flows are mapped"},
		{ID: "ID.AM-04", Function: "ID", Category: "ID.AM", Name: "Supplier-provided services are inventoried"},
		{ID: "ID.AM-05", Function: "ID", Category: "ID.AM", Name: "Assets are prioritized by criticality"},
		{ID: "ID.AM-07", Function: "ID", Category: "ID.AM", Name: "Data inventories are maintained"},
		{ID: "ID.AM-08", Function: "ID", Category: "ID.AM", Name: "Assets are managed through their lifecycle"},
		{ID: "ID.RA-01", Function: "ID", Category: "ID.RA", Name: "Asset vulnerabilities are identified"},
		{ID: "ID.RA-02", Function: "ID", Category: "ID.RA", Name: "Threat intelligence is received"},
		{ID: "ID.RA-03", Function: "ID", Category: "ID.RA", Name: "Internal and external threats are identified"},
		{ID: "ID.RA-04", Function: "ID", Category: "ID.RA", Name: "Impacts and likelihoods are identified"},
		{ID: "ID.RA-05", Function: "ID", Category: "ID.RA", Name: "Threats and vulnerabilities inform risk"},
		{ID: "ID.RA-06", Function: "ID", Category: "ID.RA", Name: "Risk responses are chosen and tracked"},
		{ID: "ID.RA-07", Function: "ID", Category: "ID.RA", Name: "Changes and exceptions are managed"},
		{ID: "ID.RA-08", Function: "ID", Category: "ID.RA", Name: "Vulnerability disclosure processes are established"},
		{ID: "ID.RA-09", Function: "ID", Category: "ID.RA", Name: "Hardware and software integrity is assessed"},
		{ID: "ID.RA-10", Function: "ID", Category: "ID.RA", Name: "Critical suppliers are assessed"},
		{ID: "ID.IM-01", Function: "ID", Category: "ID.IM", Name: "Improvements are identified from evaluations"},
		{ID: "ID.IM-02", Function: "ID", Category: "ID.IM", Name: "Improvements are identified from testing"},
		{ID: "ID.IM-03", Function: "ID", Category: "ID.IM", Name: "Improvements are identified from operations"},
		{ID: "ID.IM-04", Function: "ID", Category: "ID.IM", Name: "Incident plans are established and improved"},
		{ID: "PR.AA-01", Function: "PR", Category: "PR.AA", Name: "Identities and credentials are managed"},
		{ID: "PR.AA-02", Function: "PR", Category: "PR.AA", Name: "Identities are proofed and bound to credentials"},
		{ID: "PR.AA-03", Function: "PR", Category: "PR.AA", Name: "Users and services are authenticated"},
		{ID: "PR.AA-04", Function: "PR", Category: "PR.AA", Name: "Identity assertions are protected"},
		{ID: "PR.AA-05", Function: "PR", Category: "PR.AA", Name: "Access permissions are managed with least privilege"},
		{ID: "PR.AA-06", Function: "PR", Category: "PR.AA", Name: "Physical access is managed"},
		{ID: "PR.AT-01", Function: "PR", Category: "PR.AT", Name: "Personnel are trained in security awareness"},
		{ID: "PR.AT-02", Function: "PR", Category: "PR.AT", Name: "Specialized roles receive suitable training"},
		{ID: "PR.DS-01", Function: "PR", Category: "PR.DS", Name: "Data-at-rest confidentiality is protected"},
		{ID: "PR.DS-02", Function: "PR", Category: "PR.DS", Name: "Data-in-transit confidentiality is protected"},
		{ID: "PR.DS-10", Function: "PR", Category: "PR.DS", Name: "Data-in-use confidentiality is protected"},
		{ID: "PR.DS-11", Function: "PR", Category: "PR.DS", Name: "Backups are created and protected"},
		{ID: "PR.PS-01", Function: "PR", Category: "PR.PS", Name: "Configuration management practices are established"},
		{ID: "PR.PS-02", Function: "PR", Category: "PR.PS", Name: "Software is maintained and replaced"},
		{ID: "PR.PS-03", Function: "PR", Category: "PR.PS", Name: "Hardware is maintained and replaced"},
		{ID: "PR.PS-04", Function: "PR", Category: "PR.PS", Name: "Log records are generated for monitoring"},
		{ID: "PR.PS-05", Function: "PR", Category: "PR.PS", Name: "Unauthorized software installation is prevented"},
		{ID: "PR.PS-06", Function: "PR", Category: "PR.PS", Name: "Secure development practices are integrated"},
		{ID: "PR.IR-01", Function: "PR", Category: "PR.IR", Name: "Networks are protected from unauthorized access"},
		{ID: "PR.IR-02", Function: "PR", Category: "PR.IR", Name: "Assets are protected from environmental threats"},
		{ID: "PR.IR-03", Function: "PR", Category: "PR.IR", Name: "Resilience mechanisms are implemented"},
		{ID: "PR.IR-04", Function: "PR", Category: "PR.IR", Name: "Adequate resource capacity is maintained"},
		{ID: "DE.CM-01", Function: "DE", Category: "DE.CM", Name: "Networks are monitored for adverse events"},
		{ID: "DE.CM-02", Function: "DE", Category: "DE.CM", Name: "Physical environment is monitored"},
		{ID: "DE.CM-03", Function: "DE", Category: "DE.CM", Name: "Personnel activity and technology usage are monitored"},
		{ID: "DE.CM-06", Function: "DE", Category: "DE.CM", Name: "External service provider activities are monitored"},
		{ID: "DE.CM-09", Function: "DE", Category: "DE.CM", Name: "Computing hardware and software are monitored"},
		{ID: "DE.AE-02", Function: "DE", Category: "DE.AE", Name: "Adverse events are analyzed"},
		{ID: "DE.AE-03", Function: "DE", Category: "DE.AE", Name: "Information is correlated from multiple sources"},
		{ID: "DE.AE-04", Function: "DE", Category: "DE.AE", Name: "Impact and scope of events are understood"},
		{ID: "DE.AE-06", Function: "DE", Category: "DE.AE", Name: "Event information is provided to authorized staff"},
		{ID: "DE.AE-07", Function: "DE", Category: "DE.AE", Name: "Threat intelligence is integrated into analysis"},
		{ID: "DE.AE-08", Function: "DE", Category: "DE.AE", Name: "Incidents are declared when criteria are met"},
		{ID: "RS.MA-01", Function: "RS", Category: "RS.MA", Name: "Incident response plan is executed"},
		{ID: "RS.MA-02", Function: "RS", Category: "RS.MA", Name: "Incident reports are triaged and validated"},
		{ID: "RS.MA-03", Function: "RS", Category: "RS.MA", Name: "Incidents are categorized and prioritized"},
		{ID: "RS.MA-04", Function: "RS", Category: "RS.MA", Name: "Incidents are escalated as needed"},
		{ID: "RS.MA-05", Function: "RS", Category: "RS.MA", Name: "Criteria for recovery initiation are applied"},
		{ID: "RS.AN-03", Function: "RS", Category: "RS.AN", Name: "Analysis determines incident root cause"},
		{ID: "RS.AN-06", Function: "RS", Category: "RS.AN", Name: "Investigation actions are recorded"},
		{ID: "RS.AN-07", Function: "RS", Category: "RS.AN", Name: "Incident data and metadata are preserved"},
		{ID: "RS.AN-08", Function: "RS", Category: "RS.AN", Name: "Incident magnitude is estimated and validated"},
		{ID: "RS.CO-02", Function: "RS", Category: "RS.CO", Name: "Internal and external stakeholders are notified"},
		{ID: "RS.CO-03", Function: "RS", Category: "RS.CO", Name: "Information is shared with designated parties"},
		{ID: "RS.MI-01", Function: "RS", Category: "RS.MI", Name: "Incidents are contained"},
		{ID: "RS.MI-02", Function: "RS", Category: "RS.MI", Name: "Incidents are eradicated"},
		{ID: "RC.RP-01", Function: "RC", Category: "RC.RP", Name: "Recovery plan is executed"},
		{ID: "RC.RP-02", Function: "RC", Category: "RC.RP", Name: "Recovery actions are selected and performed"},
		{ID: "RC.RP-03", Function: "RC", Category: "RC.RP", Name: "Backup integrity is verified before restoration"},
		{ID: "RC.RP-04", Function: "RC", Category: "RC.RP", Name: "Critical functions and risk are considered post-incident"},
		{ID: "RC.RP-05", Function: "RC", Category: "RC.RP", Name: "Restored asset integrity is verified"},
		{ID: "RC.RP-06", Function: "RC", Category: "RC.RP", Name: "End of recovery is declared and documented"},
		{ID: "RC.CO-03", Function: "RC", Category: "RC.CO", Name: "Recovery progress is communicated"},
		{ID: "RC.CO-04", Function: "RC", Category: "RC.CO", Name: "Public updates use approved methods"},
	}
}
